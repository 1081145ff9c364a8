package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/mqtt"
	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "monitor",
		Short:        "Print KNoT messages exchanged on the MQTT broker",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.MQTTURL == "" {
				return fmt.Errorf("--mqtt is required")
			}
			q, err := mqtt.NewQueueFromURL(rootOpts.MQTTURL, "knotctl-monitor")
			if err != nil {
				return err
			}
			sub := q.Sub("#", func(topic string, payload []byte) {
				glog.Info(FormatPacket(topic, payload))
			})
			defer sub.Close()
			if err := q.Connect(); err != nil {
				return err
			}
			defer q.Close()
			runner := fx.NewRunner(cmd.Context()).HandleSignals()
			<-runner.Context.Done()
			return nil
		},
	}
}

// FormatPacket decodes a packet for display.
func FormatPacket(topic string, payload []byte) string {
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		return fmt.Sprintf("%s: bad message: %v", topic, err)
	}
	msg, err := typed.Decode()
	if err != nil {
		return fmt.Sprintf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
	}
	return strings.TrimSpace(fmt.Sprintf("%s: [%s] %s", topic,
		reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
		msg.Serializable().String()))
}

