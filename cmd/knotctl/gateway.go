package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/cli/sh"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/mqtt"
	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/gateway"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"

	_ "github.com/ramonhpr/zephyr-knot-sdk/pkg/cli/cmds/data"
)

// GatewayOptions holds flags for the gateway command.
type GatewayOptions struct {
	*RootOptions
	Listen     string
	Websocket  string
	Shell      bool
	OutputJSON bool
}

// NewGatewayCommand creates the gateway command.
func NewGatewayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatewayOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "gateway [SHELL-COMMAND...]",
		Short: "Serve things as a KNoT gateway",
		Long: `Serve things as a KNoT gateway: register, authenticate and collect
the data of things reaching it over MQTT, TCP or websocket.

With --shell an interactive shell issues commands to the things.
Shell commands given as arguments are run once instead.

Examples:
  knotctl gateway --mqtt mqtt://localhost:1883/knot --shell
  knotctl gateway --mqtt "" --listen :8082 --ws :8081`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context(), opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "TCP address for stream connections")
	cmd.Flags().StringVar(&opts.Websocket, "ws", "", "HTTP address serving websocket connections on /knot")
	cmd.Flags().BoolVar(&opts.Shell, "shell", false, "run the interactive shell")
	cmd.Flags().BoolVar(&opts.OutputJSON, "json", false, "print shell output in JSON")
	return cmd
}

func runGateway(ctx context.Context, opts *GatewayOptions, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := fx.NewRunner(ctx).HandleSignals()
	srv := gateway.NewServer(gateway.New())

	if opts.MQTTURL != "" {
		q, err := mqtt.NewQueueFromURL(opts.MQTTURL, "knotctl-gateway")
		if err != nil {
			return err
		}
		runner.Go(fx.NamedRun("mqtt", fx.RunFunc(func(ctx context.Context) error {
			return srv.ServeMQTT(ctx, q)
		})))
	}
	if opts.Listen != "" {
		l, err := net.Listen("tcp", opts.Listen)
		if err != nil {
			return err
		}
		glog.Infof("gateway: listening on %s", l.Addr())
		runner.Go(fx.NamedRun("stream", fx.RunFunc(func(ctx context.Context) error {
			return srv.Serve(ctx, l)
		})))
	}
	if opts.Websocket != "" {
		runner.Go(fx.NamedRun("websocket", websocketRunner(srv, opts.Websocket)))
	}
	if runner.Len() == 0 {
		return fmt.Errorf("no transport enabled")
	}

	if !opts.Shell && len(args) == 0 {
		srv.Gateway.OnUpdate = logUpdate
		return runner.Wait()
	}
	shell := sh.New(srv)
	shell.OutputJSON = opts.OutputJSON
	shell.Interactive = opts.Shell
	shell.Run(args...)
	cancel()
	return runner.Wait()
}

func websocketRunner(srv *gateway.Server, addr string) fx.RunFunc {
	return func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/knot", srv.WebsocketHandler(ctx))
		httpSrv := &http.Server{Addr: addr, Handler: mux}
		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

func logUpdate(key string, msg msgs.Message) {
	switch m := msg.(type) {
	case *msgs.DataPush:
		if v, err := m.Value.Knot(); err == nil {
			glog.Infof("%s: data %d = %s", key, m.SensorId, knot.FormatValue(v))
		}
	case *msgs.DataSetResponse:
		if v, err := m.Value.Knot(); err == nil {
			glog.Infof("%s: data %d set to %s", key, m.SensorId, knot.FormatValue(v))
		}
	}
}
