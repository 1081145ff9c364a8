package knot

import (
	"errors"
	"fmt"
	"strings"
)

// EventFlags selects which triggers push a data point's value.
type EventFlags uint8

// Event flags.
const (
	EventNone           EventFlags = 0x00
	EventTime           EventFlags = 0x01
	EventLowerThreshold EventFlags = 0x02
	EventUpperThreshold EventFlags = 0x04
	EventChange         EventFlags = 0x08

	eventAll = EventTime | EventLowerThreshold | EventUpperThreshold | EventChange
)

// Has reports whether all flags in f are set.
func (e EventFlags) Has(f EventFlags) bool {
	return f != 0 && e&f == f
}

// String implements fmt.Stringer.
func (e EventFlags) String() string {
	if e == EventNone {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		flag EventFlags
		name string
	}{
		{EventChange, "change"},
		{EventTime, "time"},
		{EventUpperThreshold, "upper"},
		{EventLowerThreshold, "lower"},
	} {
		if e.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	if rest := e &^ eventAll; rest != 0 {
		names = append(names, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(names, "|")
}

var (
	// ErrUnknownEvent indicates unsupported bits in event flags.
	ErrUnknownEvent = errors.New("unknown event flag")
	// ErrZeroPeriod indicates the time event has no period.
	ErrZeroPeriod = errors.New("time event requires a non-zero period")
	// ErrThresholdKind indicates a threshold on a kind without ordering.
	ErrThresholdKind = errors.New("threshold not supported by value kind")
	// ErrLimitKind indicates a limit missing or of a different kind.
	ErrLimitKind = errors.New("limit does not match value kind")
	// ErrLimitOrder indicates the lower limit is above the upper limit.
	ErrLimitOrder = errors.New("lower limit above upper limit")
)

// Config is the event configuration of a data point. Limits are only
// meaningful when the matching threshold flag is set.
type Config struct {
	Flags      EventFlags
	TimeSec    uint16
	LowerLimit Value
	UpperLimit Value
}

// EventOption sets one trigger in a Config.
type EventOption func(*Config)

// OnChange pushes whenever the value changes.
func OnChange() EventOption {
	return func(c *Config) { c.Flags |= EventChange }
}

// OnTime pushes every sec seconds.
func OnTime(sec uint16) EventOption {
	return func(c *Config) {
		c.Flags |= EventTime
		c.TimeSec = sec
	}
}

// OnUpperThreshold pushes when the value crosses above limit.
func OnUpperThreshold(limit Value) EventOption {
	return func(c *Config) {
		c.Flags |= EventUpperThreshold
		c.UpperLimit = limit
	}
}

// OnLowerThreshold pushes when the value crosses below limit.
func OnLowerThreshold(limit Value) EventOption {
	return func(c *Config) {
		c.Flags |= EventLowerThreshold
		c.LowerLimit = limit
	}
}

// NewConfig builds a Config from event options.
func NewConfig(opts ...EventOption) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks the configuration is consistent with the value kind.
func (c Config) Validate(kind ValueKind) error {
	if c.Flags&^eventAll != 0 {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownEvent, uint8(c.Flags&^eventAll))
	}
	if c.Flags.Has(EventTime) && c.TimeSec == 0 {
		return ErrZeroPeriod
	}
	upper, lower := c.Flags.Has(EventUpperThreshold), c.Flags.Has(EventLowerThreshold)
	if !upper && !lower {
		return nil
	}
	if !kind.IsOrdered() {
		return fmt.Errorf("%w: %v", ErrThresholdKind, kind)
	}
	if upper && (c.UpperLimit == nil || c.UpperLimit.Kind() != kind) {
		return fmt.Errorf("%w: upper limit for %v", ErrLimitKind, kind)
	}
	if lower && (c.LowerLimit == nil || c.LowerLimit.Kind() != kind) {
		return fmt.Errorf("%w: lower limit for %v", ErrLimitKind, kind)
	}
	if upper && lower && Less(c.UpperLimit, c.LowerLimit) {
		return ErrLimitOrder
	}
	return nil
}
