package main

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
)

const (
	// HighTemp is the upper threshold of THERMO.
	HighTemp = 100000
	// ToggleInterval is how often the simulated button toggles LED.
	ToggleInterval = 3 * time.Second
)

// Sensors simulates the data points of the multisensor board.
type Sensors struct {
	thermo int32
	led    atomic.Bool
	plate  []byte
}

// NewSensors creates Sensors with the initial values.
func NewSensors() *Sensors {
	s := &Sensors{plate: []byte("KNT0000")}
	s.led.Store(true)
	return s
}

// Register registers and configures THERMO, LED and PLATE. Failures are
// logged and the remaining data points are still registered.
func (s *Sensors) Register(reg *proxy.Registry) error {
	errs := &fx.AggregatedError{}
	// THERMO: sent every 5 seconds or at high temperatures
	if _, err := reg.Register(0, "THERMO", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC,
		s.changedThermo, s.pollThermo); err != nil {
		glog.Errorf("THERMO failed to register: %v", err)
		errs.Add(err)
	} else if err := reg.Configure(0, knot.NewConfig(knot.OnTime(5), knot.OnUpperThreshold(knot.Int(HighTemp)))); err != nil {
		glog.Errorf("THERMO failed to configure: %v", err)
		errs.Add(err)
	}

	// LED: sent after change
	if _, err := reg.Register(1, "LED", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable,
		s.changedLED, s.pollLED); err != nil {
		glog.Errorf("LED failed to register: %v", err)
		errs.Add(err)
	} else if err := reg.Configure(1, knot.NewConfig(knot.OnChange())); err != nil {
		glog.Errorf("LED failed to configure: %v", err)
		errs.Add(err)
	}

	// PLATE: sent every 10 seconds
	if _, err := reg.Register(2, "PLATE", knot.TypeIDNone, knot.KindRaw, knot.UnitNotApplicable,
		s.changedPlate, s.randomPlate); err != nil {
		glog.Errorf("PLATE failed to register: %v", err)
		errs.Add(err)
	} else if err := reg.Configure(2, knot.NewConfig(knot.OnTime(10))); err != nil {
		glog.Errorf("PLATE failed to configure: %v", err)
		errs.Add(err)
	}
	return errs.Aggregate()
}

func (s *Sensors) changedThermo(p *proxy.Proxy) {
	s.thermo, _ = p.Int()
	glog.Infof("Value for thermo with id %d changed to %d", p.ID(), s.thermo)
}

func (s *Sensors) pollThermo(p *proxy.Proxy) {
	s.thermo++
	if p.SetValue(knot.Int(s.thermo)) {
		glog.Infof("Sending value %d for thermo with id %d", s.thermo, p.ID())
	}
}

func (s *Sensors) changedLED(p *proxy.Proxy) {
	v, _ := p.Bool()
	s.led.Store(v)
	glog.Infof("Value for led changed to %v", v)
}

func (s *Sensors) pollLED(p *proxy.Proxy) {
	v := s.led.Load()
	if p.SetValue(knot.Bool(v)) {
		glog.Infof("Sending value %v for led", v)
	}
}

func (s *Sensors) changedPlate(p *proxy.Proxy) {
	buf := make([]byte, knot.DataRawSize)
	if n, ok := p.Raw(buf); ok {
		s.plate = buf[:n]
		glog.Infof("Plate changed %s", s.plate)
	}
}

func (s *Sensors) randomPlate(p *proxy.Proxy) {
	if len(s.plate) >= 7 {
		num := byte(rand.Intn(7))
		s.plate[3] = '0' + num
		s.plate[4] = '1' + num
		s.plate[5] = '2' + num
		s.plate[6] = '3' + num
	}
	if p.SetRaw(s.plate) {
		glog.Infof("Sent plate %s", s.plate)
	}
}

// ToggleLED flips LED every interval until ctx is done, standing in for the
// button of a real board.
func (s *Sensors) ToggleLED(interval time.Duration) fx.Runnable {
	return fx.NamedRun("led-toggle", fx.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				for {
					v := s.led.Load()
					if s.led.CompareAndSwap(v, !v) {
						break
					}
				}
			}
		}
	}))
}
