package proxy

import (
	"bytes"
	"time"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
)

// Callback is invoked with the proxy it was registered for.
type Callback func(*Proxy)

// Proxy is the local end of one data point. It's owned by a Registry slot
// and only handed to callbacks and application setup code.
type Proxy struct {
	id     uint8
	schema knot.Schema
	config knot.Config

	// scalar value, unused for raw data
	value knot.Value
	raw   [knot.DataRawSize]byte
	rlen  int

	send        bool
	waitResp    bool
	upperFlag   bool
	lowerFlag   bool
	olen        int
	lastTimeout time.Time

	clock   fx.TimeSource
	poll    Callback
	changed Callback
}

// ID returns the data point id, knot.InvalidID for a nil proxy.
func (p *Proxy) ID() uint8 {
	if p == nil {
		return knot.InvalidID
	}
	return p.id
}

// Schema returns the registered schema.
func (p *Proxy) Schema() knot.Schema {
	if p == nil {
		return knot.Schema{TypeID: knot.TypeIDInvalid}
	}
	return p.schema
}

// Value returns a copy of the current value.
func (p *Proxy) Value() knot.Value {
	if p == nil {
		return nil
	}
	if p.schema.ValueKind == knot.KindRaw {
		return knot.Raw(append([]byte(nil), p.raw[:p.rlen]...))
	}
	return p.value
}

// Bool returns the current value of a bool data point.
func (p *Proxy) Bool() (bool, bool) {
	if p == nil {
		return false, false
	}
	v, ok := p.value.(knot.Bool)
	return bool(v), ok
}

// Int returns the current value of an int data point.
func (p *Proxy) Int() (int32, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.value.(knot.Int)
	return int32(v), ok
}

// Float returns the current value of a float data point.
func (p *Proxy) Float() (float32, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.value.(knot.Float)
	return float32(v), ok
}

// Raw copies the current payload of a raw data point into dst and returns
// the number of bytes copied.
func (p *Proxy) Raw(dst []byte) (int, bool) {
	if p == nil || p.schema.ValueKind != knot.KindRaw {
		return 0, false
	}
	return copy(dst, p.raw[:p.rlen]), true
}

// SetValue evaluates the triggers against a freshly sensed value and
// records it when a push is due. It reports whether a push was triggered.
func (p *Proxy) SetValue(v knot.Value) bool {
	if p == nil || p.poll == nil || v == nil {
		return false
	}
	if raw, ok := v.(knot.Raw); ok {
		return p.SetRaw(raw)
	}
	if v.Kind() != p.schema.ValueKind {
		return false
	}

	timeout := p.checkTimeout()
	cfg := &p.config
	change := cfg.Flags.Has(knot.EventChange) && !knot.Equal(v, p.value)

	var upper, lower bool
	if p.schema.ValueKind.IsOrdered() {
		upper = cfg.Flags.Has(knot.EventUpperThreshold) && knot.Less(cfg.UpperLimit, v)
		lower = cfg.Flags.Has(knot.EventLowerThreshold) && knot.Less(v, cfg.LowerLimit)
	}

	push := p.send || timeout || change ||
		(upper && !p.upperFlag) || (lower && !p.lowerFlag)
	if push {
		p.value = v
		p.olen = v.Size()
		p.send = p.waitResp
	}

	// crossing state is kept even without a push to detect the next edge
	p.upperFlag = upper
	p.lowerFlag = lower
	return push
}

// SetRaw is SetValue for raw data points. Payloads longer than
// knot.DataRawSize are truncated.
func (p *Proxy) SetRaw(b []byte) bool {
	if p == nil || p.poll == nil || p.schema.ValueKind != knot.KindRaw {
		return false
	}
	if len(b) > knot.DataRawSize {
		b = b[:knot.DataRawSize]
	}

	timeout := p.checkTimeout()
	change := p.config.Flags.Has(knot.EventChange) && !bytes.Equal(b, p.raw[:p.rlen])
	if !p.send && !timeout && !change {
		return false
	}
	p.storeRaw(b)
	p.olen = p.rlen
	p.send = p.waitResp
	return true
}

func (p *Proxy) checkTimeout() bool {
	if !p.config.Flags.Has(knot.EventTime) {
		return false
	}
	now := p.clock.Time()
	if now.Sub(p.lastTimeout) < time.Duration(p.config.TimeSec)*time.Second {
		return false
	}
	p.lastTimeout = now
	return true
}

func (p *Proxy) storeRaw(b []byte) {
	p.rlen = copy(p.raw[:], b)
}
