// Package data adds the data point commands to the shell.
package data

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/cli/sh"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

// ParseConfig parses event arguments for a data point of kind:
//
//	change time=SEC lower=VALUE upper=VALUE
func ParseConfig(kind knot.ValueKind, args []string) (knot.Config, error) {
	var opts []knot.EventOption
	for _, arg := range args {
		name, val, hasVal := strings.Cut(arg, "=")
		switch {
		case name == "change" && !hasVal:
			opts = append(opts, knot.OnChange())
		case name == "time" && hasVal:
			sec, err := strconv.ParseUint(val, 10, 16)
			if err != nil {
				return knot.Config{}, fmt.Errorf("invalid time: %v", err)
			}
			opts = append(opts, knot.OnTime(uint16(sec)))
		case (name == "lower" || name == "upper") && hasVal:
			limit, err := knot.ParseValue(kind, val)
			if err != nil {
				return knot.Config{}, fmt.Errorf("invalid %s: %v", name, err)
			}
			if name == "lower" {
				opts = append(opts, knot.OnLowerThreshold(limit))
			} else {
				opts = append(opts, knot.OnUpperThreshold(limit))
			}
		default:
			return knot.Config{}, fmt.Errorf("unknown event %q", arg)
		}
	}
	cfg := knot.NewConfig(opts...)
	return cfg, cfg.Validate(kind)
}

func parseID(c *ishell.Context) (uint8, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("ID required"))
		return 0, false
	}
	id, err := strconv.ParseUint(c.Args[0], 0, 8)
	if err != nil || uint8(id) == knot.InvalidID {
		c.Err(fmt.Errorf("invalid ID %q", c.Args[0]))
		return 0, false
	}
	return uint8(id), true
}

var (
	// SchemaCmd lists the data points of the selected thing.
	SchemaCmd = ishell.Cmd{
		Name:    "schema",
		Aliases: []string{"s"},
		Help:    "list data points of the selected thing",
		Func: sh.MustSelectThing(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			info, err := s.Server.Gateway.Thing(s.Thing)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.PrintJSON(c, info.Data)
				return
			}
			for _, dp := range info.Data {
				c.Println(sh.FormatDataPoint(dp))
			}
		}),
	}

	// PollCmd requests the value of a data point.
	PollCmd = ishell.Cmd{
		Name:    "poll",
		Aliases: []string{"p"},
		Help:    "ID",
		Func: sh.MustSelectThing(func(c *ishell.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			s := sh.ShellFrom(c)
			msg, err := s.Server.Gateway.Poll(s.Thing, id)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg, msgs.DataPushTypeID)
		}),
	}

	// SetCmd writes the value of a data point.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "ID VALUE",
		Func: sh.MustSelectThing(func(c *ishell.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("VALUE required"))
				return
			}
			s := sh.ShellFrom(c)
			msg, err := s.Server.Gateway.Set(s.Thing, id, strings.Join(c.Args[1:], " "))
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg, msgs.DataSetResponseTypeID)
		}),
	}

	// ConfigCmd replaces the events of a data point.
	ConfigCmd = ishell.Cmd{
		Name:    "config",
		Aliases: []string{"cfg"},
		Help:    "ID [change] [time=SEC] [lower=VALUE] [upper=VALUE]",
		Func: sh.MustSelectThing(func(c *ishell.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			s := sh.ShellFrom(c)
			info, err := s.Server.Gateway.Thing(s.Thing)
			if err != nil {
				c.Err(err)
				return
			}
			var kind knot.ValueKind
			for _, dp := range info.Data {
				if dp.ID == id {
					kind = dp.Schema.ValueKind
				}
			}
			cfg, err := ParseConfig(kind, c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			msg, err := s.Server.Gateway.SetConfig(s.Thing, id, cfg)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg, msgs.ConfigSetResponseTypeID)
		}),
	}

	// UnregisterCmd removes the selected thing.
	UnregisterCmd = ishell.Cmd{
		Name: "unregister",
		Help: "unregister the selected thing",
		Func: sh.MustSelectThing(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			msg, err := s.Server.Gateway.Unregister(s.Thing)
			if err != nil {
				c.Err(err)
				return
			}
			if sh.DoCommand(c, msg, msgs.UnregisterResponseTypeID) == nil {
				s.Leave()
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&SchemaCmd,
		&PollCmd,
		&SetCmd,
		&ConfigCmd,
		&UnregisterCmd,
	)
}
