package thing

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
)

// Description configures the events of data points, e.g.
//
//	data:
//	  - id: 0
//	    time_sec: 5
//	    upper_threshold: 100000
//	  - id: 1
//	    change: true
//
// Thresholds are parsed according to the value kind of the data point.
type Description struct {
	Data []EventDescription `yaml:"data"`
}

// EventDescription is the event configuration of a single data point.
type EventDescription struct {
	ID             uint8     `yaml:"id"`
	Change         bool      `yaml:"change"`
	TimeSec        uint16    `yaml:"time_sec"`
	LowerThreshold yaml.Node `yaml:"lower_threshold"`
	UpperThreshold yaml.Node `yaml:"upper_threshold"`
}

// ParseDescription decodes a YAML description.
func ParseDescription(r io.Reader) (*Description, error) {
	var d Description
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && err != io.EOF {
		return nil, err
	}
	return &d, nil
}

// LoadDescription reads a YAML description file.
func LoadDescription(fn string) (*Description, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := ParseDescription(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return d, nil
}

// Config builds the event configuration for a data point of kind.
func (e EventDescription) Config(kind knot.ValueKind) (knot.Config, error) {
	var opts []knot.EventOption
	if e.Change {
		opts = append(opts, knot.OnChange())
	}
	if e.TimeSec != 0 {
		opts = append(opts, knot.OnTime(e.TimeSec))
	}
	if e.LowerThreshold.Kind != 0 {
		v, err := thresholdValue(kind, &e.LowerThreshold)
		if err != nil {
			return knot.Config{}, fmt.Errorf("lower_threshold: %w", err)
		}
		opts = append(opts, knot.OnLowerThreshold(v))
	}
	if e.UpperThreshold.Kind != 0 {
		v, err := thresholdValue(kind, &e.UpperThreshold)
		if err != nil {
			return knot.Config{}, fmt.Errorf("upper_threshold: %w", err)
		}
		opts = append(opts, knot.OnUpperThreshold(v))
	}
	return knot.NewConfig(opts...), nil
}

func thresholdValue(kind knot.ValueKind, node *yaml.Node) (knot.Value, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: scalar expected", node.Line)
	}
	return knot.ParseValue(kind, node.Value)
}

// Apply configures the described data points in the registry. All entries
// are attempted and the failures are aggregated.
func (d *Description) Apply(reg *proxy.Registry) error {
	errs := &fx.AggregatedError{}
	for _, e := range d.Data {
		schema, ok := reg.Schema(e.ID)
		if !ok {
			errs.Add(fmt.Errorf("data %d: %w", e.ID, proxy.ErrNotRegistered))
			continue
		}
		cfg, err := e.Config(schema.ValueKind)
		if err == nil {
			err = reg.Configure(e.ID, cfg)
		}
		if err != nil {
			errs.Add(fmt.Errorf("data %d: %w", e.ID, err))
		}
	}
	return errs.Aggregate()
}
