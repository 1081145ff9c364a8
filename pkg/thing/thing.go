// Package thing runs a KNoT thing: the data point registry, the protocol
// state machine and the transport driven by a framework.Loop.
package thing

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm"
	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/sm"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/storage"
)

// Thing wires the registry, the state machine and the transport.
// Data points are registered on Registry before Start.
type Thing struct {
	Config   Config
	Registry *proxy.Registry
	Machine  *sm.Machine
	Pipe     *comm.Pipe
	Store    *storage.Store
}

// NewThingWith creates a Thing over an opened transport and store.
func (c *Config) NewThingWith(rw comm.PacketReadWriter, store *storage.Store) *Thing {
	t := &Thing{
		Config:   *c,
		Registry: proxy.NewRegistry(c.Capacity, nil),
		Pipe:     comm.NewPipe(rw),
		Store:    store,
	}
	t.Machine = sm.New(sm.Config{Name: c.Name, DeviceID: c.DeviceID}, t.Registry, store)
	return t
}

// Start applies the event description, if any, and starts the state machine.
func (t *Thing) Start() error {
	if fn := t.Config.EventsFile; fn != "" {
		desc, err := LoadDescription(fn)
		if err != nil {
			return err
		}
		if err := desc.Apply(t.Registry); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
	}
	return t.Machine.Start()
}

// Control implements Controller. Every received message is run through the
// state machine, or a single idle step when nothing was received.
func (t *Thing) Control(cc fx.ControlContext) error {
	ran := false
	for {
		m, ok := cc.TakeMessage()
		if !ok {
			break
		}
		in, ok := m.(msgs.Message)
		if !ok {
			continue
		}
		ran = true
		if err := t.step(cc, in); err != nil {
			return err
		}
	}
	if ran {
		return nil
	}
	return t.step(cc, nil)
}

func (t *Thing) step(cc fx.ControlContext, in msgs.Message) error {
	out := t.Machine.Run(cc.Time(), in)
	if out == nil {
		return nil
	}
	if err := t.Pipe.Send(out); err != nil {
		glog.Warningf("knot: send %#x: %v", out.TypeID(), err)
		return err
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (t *Thing) AddToLoop(loop *fx.Loop) {
	loop.Add(t.Pipe)
	loop.AddController(t)
}

// Close stops the state machine and releases the transport and store.
func (t *Thing) Close() error {
	t.Machine.Stop()
	errs := &fx.AggregatedError{}
	errs.Add(t.Pipe.Close(), t.Store.Close())
	return errs.Aggregate()
}
