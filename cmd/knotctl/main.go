package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// MQTTURL is the broker shared with the things.
	MQTTURL string
}

var defaultMQTTURL = "mqtt://localhost:1883/knot"

func init() {
	if val := os.Getenv("KNOT_URL"); val != "" {
		defaultMQTTURL = val
	}
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	cmd := &cobra.Command{
		Use:   "knotctl",
		Short: "KNoT gateway simulator and traffic monitor",
		PersistentPreRun: func(*cobra.Command, []string) {
			// glog reads its flags from the standard flag set
			flag.CommandLine.Parse(nil)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.MQTTURL, "mqtt", defaultMQTTURL, "MQTT broker URL, empty disables MQTT")
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(NewGatewayCommand(opts))
	cmd.AddCommand(NewMonitorCommand(opts))
	return cmd
}

func main() {
	defer glog.Flush()
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
