package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/sm"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/thing"
)

// Blink periods of the status LED.
const (
	StatusDisconnPeriod = 500 * time.Millisecond
	StatusConnPeriod    = 2 * time.Second
	StatusErrorPeriod   = 100 * time.Millisecond
)

// StatusPeriod returns the status LED blink period for a state.
func StatusPeriod(s sm.State) time.Duration {
	switch s {
	case sm.StateOnline:
		return StatusConnPeriod
	case sm.StateError:
		return StatusErrorPeriod
	}
	return StatusDisconnPeriod
}

func init() {
	thing.Default().Name = "multisensor"
	thing.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	runner := fx.NewRunner(context.Background()).HandleSignals()
	t := thing.NewConfig().MustNewThing(runner.Context)
	defer t.Close()

	sensors := NewSensors()
	if err := sensors.Register(t.Registry); err != nil {
		log.Fatalln(err)
	}
	t.Machine.OnStateChange = func(s sm.State) {
		glog.Infof("STATE: %v, status period %v", s, StatusPeriod(s))
	}
	if err := t.Start(); err != nil {
		log.Fatalln(err)
	}

	loop := fx.NewLoop().Add(t)
	err := runner.Go(
		fx.NamedRun("loop", loop),
		sensors.ToggleLED(ToggleInterval),
	).Wait()
	if err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}
