// Package proxy keeps the local data points of a thing synchronized with
// their remote digital twin.
//
// A Registry holds a fixed number of slots indexed by data point id. The
// application registers each data point with a poll callback, which refreshes
// the local value, and a changed callback, which receives values set
// remotely. The transport side drains pending values with Read and applies
// inbound values with Write.
//
// A Registry is not safe for concurrent use; it is driven by a single
// polling cycle.
package proxy

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
)

// Capacity limits.
const (
	// DefaultCapacity is the number of slots used when none is given.
	DefaultCapacity = 8
	// MaxCapacity keeps every id below knot.InvalidID.
	MaxCapacity = int(knot.InvalidID) - 1
)

var (
	// ErrOutOfRange indicates the id exceeds the registry capacity.
	ErrOutOfRange = errors.New("id out of range")
	// ErrAlreadyRegistered indicates the slot is occupied.
	ErrAlreadyRegistered = errors.New("id already registered")
	// ErrNotRegistered indicates the slot is free.
	ErrNotRegistered = errors.New("id not registered")
	// ErrInvalidSchema indicates the schema was rejected.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidConfig indicates the event configuration was rejected.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnsupported indicates an operation on the wrong value kind.
	ErrUnsupported = errors.New("unsupported value kind")
)

// Registry is the fixed-size table of data point proxies.
type Registry struct {
	clock  fx.TimeSource
	boot   time.Time
	slots  []Proxy
	lastID uint8
}

// NewRegistry creates a Registry with capacity slots. Capacity is clamped to
// [1, MaxCapacity]. A nil clock means the system clock.
func NewRegistry(capacity int, clock fx.TimeSource) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	if clock == nil {
		clock = fx.SystemClock{}
	}
	r := &Registry{
		clock: clock,
		slots: make([]Proxy, capacity),
	}
	r.Reset()
	return r
}

// Reset frees every slot.
func (r *Registry) Reset() {
	r.boot = r.clock.Time()
	for i := range r.slots {
		r.slots[i] = Proxy{id: knot.InvalidID}
	}
	r.lastID = knot.InvalidID
}

// Stop is called when the thing stops synchronizing.
func (r *Registry) Stop() {
}

// Capacity returns the number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Register occupies slot id with a new data point.
// Either callback may be nil.
func (r *Registry) Register(id uint8, name string, typeID knot.TypeID, kind knot.ValueKind, unit knot.Unit, changed, poll Callback) (*Proxy, error) {
	if int(id) >= len(r.slots) {
		glog.Errorf("register id %d failed: capacity is %d", id, len(r.slots))
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	p := &r.slots[id]
	if p.id != knot.InvalidID {
		glog.Errorf("register id %d failed: already registered", id)
		return nil, fmt.Errorf("%w: %d", ErrAlreadyRegistered, id)
	}
	if name == "" {
		glog.Errorf("register id %d failed: missing name", id)
		return nil, fmt.Errorf("%w: missing name", ErrInvalidSchema)
	}
	if err := knot.ValidateSchema(typeID, kind, unit); err != nil {
		glog.Errorf("register id %d failed: %v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	*p = Proxy{
		id: id,
		schema: knot.Schema{
			TypeID:    typeID,
			ValueKind: kind,
			Unit:      unit,
			Name:      knot.TruncateName(name),
		},
		value:       knot.ZeroValue(kind),
		lastTimeout: r.boot,
		clock:       r.clock,
		poll:        poll,
		changed:     changed,
	}

	if r.lastID == knot.InvalidID || id > r.lastID {
		r.lastID = id
	}
	return p, nil
}

// Configure replaces the event configuration of a data point.
func (r *Registry) Configure(id uint8, cfg knot.Config) error {
	p, err := r.lookup(id)
	if err != nil {
		glog.Errorf("config id %d failed: %v", id, err)
		return err
	}
	if err := cfg.Validate(p.schema.ValueKind); err != nil {
		glog.Errorf("config id %d failed: %v", id, err)
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !cfg.Flags.Has(knot.EventUpperThreshold) {
		cfg.UpperLimit = nil
	}
	if !cfg.Flags.Has(knot.EventLowerThreshold) {
		cfg.LowerLimit = nil
	}
	if !cfg.Flags.Has(knot.EventTime) {
		cfg.TimeSec = 0
	}
	p.config = cfg
	return nil
}

// Proxy returns the proxy registered at id.
func (r *Registry) Proxy(id uint8) (*Proxy, error) {
	return r.lookup(id)
}

// Schema returns the schema registered at id.
func (r *Registry) Schema(id uint8) (knot.Schema, bool) {
	p, err := r.lookup(id)
	if err != nil {
		return knot.Schema{}, false
	}
	return p.schema, true
}

// Config returns the event configuration of id.
func (r *Registry) Config(id uint8) (knot.Config, bool) {
	p, err := r.lookup(id)
	if err != nil {
		return knot.Config{}, false
	}
	return p.config, true
}

// LastID returns the highest id ever registered, or knot.InvalidID.
func (r *Registry) LastID() uint8 {
	return r.lastID
}

// Read polls the data point and returns its value if there's something
// to send. waitResp keeps the push pending until ConfirmSent.
func (r *Registry) Read(id uint8, waitResp bool) (knot.Value, int, bool) {
	p, err := r.lookup(id)
	if err != nil || p.poll == nil {
		return nil, 0, false
	}
	p.olen = 0
	p.waitResp = waitResp
	p.poll(p)
	if p.olen <= 0 {
		return nil, 0, false
	}
	return p.Value(), p.olen, true
}

// Write applies a value received from the remote side and reports it to the
// application. It returns the amount of output the changed callback
// produced.
func (r *Registry) Write(id uint8, v knot.Value) (int, error) {
	p, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	if v == nil || v.Kind() != p.schema.ValueKind {
		return 0, fmt.Errorf("%w: %v on %v data", ErrUnsupported, kindOf(v), p.schema.ValueKind)
	}
	if p.changed == nil {
		return 0, nil
	}
	if raw, ok := v.(knot.Raw); ok {
		p.storeRaw(raw)
	} else {
		p.value = v
	}
	p.olen = 0
	p.changed(p)
	return p.olen, nil
}

// ForceSend flags the data point to be sent on its next evaluation
// regardless of triggers.
func (r *Registry) ForceSend(id uint8) error {
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	p.send = true
	return nil
}

// ConfirmSent clears a pending push once the remote side acknowledged it.
func (r *Registry) ConfirmSent(id uint8) error {
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	p.send = false
	return nil
}

func (r *Registry) lookup(id uint8) (*Proxy, error) {
	if int(id) >= len(r.slots) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	p := &r.slots[id]
	if p.id == knot.InvalidID {
		return nil, fmt.Errorf("%w: %d", ErrNotRegistered, id)
	}
	return p, nil
}

func kindOf(v knot.Value) knot.ValueKind {
	if v == nil {
		return knot.KindInvalid
	}
	return v.Kind()
}
