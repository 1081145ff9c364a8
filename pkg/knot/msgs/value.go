package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
)

// ErrMissingValue indicates a data message without value.
var ErrMissingValue = errors.New("missing value")

// Value is the wire form of knot.Value. Only the field selected by Kind is
// meaningful.
type Value struct {
	Kind  uint32  `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	Int   int32   `protobuf:"zigzag32,2,opt,name=int_value,json=intValue,proto3" json:"int_value,omitempty"`
	Float float32 `protobuf:"fixed32,3,opt,name=float_value,json=floatValue,proto3" json:"float_value,omitempty"`
	Bool  bool    `protobuf:"varint,4,opt,name=bool_value,json=boolValue,proto3" json:"bool_value,omitempty"`
	Raw   []byte  `protobuf:"bytes,5,opt,name=raw_value,json=rawValue,proto3" json:"raw_value,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Value) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Value) Reset() { *m = Value{} }

// String implements proto.Message.
func (m *Value) String() string { return proto.CompactTextString(m) }

// NewValue converts a knot.Value, nil stays nil.
func NewValue(v knot.Value) *Value {
	switch val := v.(type) {
	case knot.Bool:
		return &Value{Kind: uint32(knot.KindBool), Bool: bool(val)}
	case knot.Int:
		return &Value{Kind: uint32(knot.KindInt), Int: int32(val)}
	case knot.Float:
		return &Value{Kind: uint32(knot.KindFloat), Float: float32(val)}
	case knot.Raw:
		return &Value{Kind: uint32(knot.KindRaw), Raw: append([]byte(nil), val...)}
	}
	return nil
}

// Knot converts back to knot.Value.
func (m *Value) Knot() (knot.Value, error) {
	if m == nil {
		return nil, ErrMissingValue
	}
	switch knot.ValueKind(m.Kind) {
	case knot.KindBool:
		return knot.Bool(m.Bool), nil
	case knot.KindInt:
		return knot.Int(m.Int), nil
	case knot.KindFloat:
		return knot.Float(m.Float), nil
	case knot.KindRaw:
		return knot.Raw(m.Raw), nil
	}
	return nil, fmt.Errorf("invalid value kind %d", m.Kind)
}

// NewSchemaMessage builds the schema message for a data point. The last data
// point is sent with SchemaEnd.
func NewSchemaMessage(id uint8, s knot.Schema, end bool) Message {
	if end {
		return &SchemaEnd{
			SensorId:  uint32(id),
			TypeId:    uint32(s.TypeID),
			ValueType: uint32(s.ValueKind),
			Unit:      uint32(s.Unit),
			Name:      s.Name,
		}
	}
	return &SchemaFrag{
		SensorId:  uint32(id),
		TypeId:    uint32(s.TypeID),
		ValueType: uint32(s.ValueKind),
		Unit:      uint32(s.Unit),
		Name:      s.Name,
	}
}

// Schema extracts the schema carried by a fragment.
func (m *SchemaFrag) Schema() knot.Schema {
	return knot.Schema{
		TypeID:    knot.TypeID(m.TypeId),
		ValueKind: knot.ValueKind(m.ValueType),
		Unit:      knot.Unit(m.Unit),
		Name:      m.Name,
	}
}

// Schema extracts the schema carried by the last fragment.
func (m *SchemaEnd) Schema() knot.Schema {
	return knot.Schema{
		TypeID:    knot.TypeID(m.TypeId),
		ValueKind: knot.ValueKind(m.ValueType),
		Unit:      knot.Unit(m.Unit),
		Name:      m.Name,
	}
}

// NewConfigSet builds a ConfigSet from an event configuration.
func NewConfigSet(id uint8, cfg knot.Config) *ConfigSet {
	return &ConfigSet{
		SensorId:   uint32(id),
		Flags:      uint32(cfg.Flags),
		TimeSec:    uint32(cfg.TimeSec),
		LowerLimit: NewValue(cfg.LowerLimit),
		UpperLimit: NewValue(cfg.UpperLimit),
	}
}

// Config converts the message into an event configuration.
func (m *ConfigSet) Config() (knot.Config, error) {
	if m.Flags > 0xff {
		return knot.Config{}, fmt.Errorf("%w: 0x%x", knot.ErrUnknownEvent, m.Flags)
	}
	if m.TimeSec > 0xffff {
		return knot.Config{}, fmt.Errorf("time period %d too large", m.TimeSec)
	}
	cfg := knot.Config{
		Flags:   knot.EventFlags(m.Flags),
		TimeSec: uint16(m.TimeSec),
	}
	var err error
	if m.LowerLimit != nil {
		if cfg.LowerLimit, err = m.LowerLimit.Knot(); err != nil {
			return cfg, err
		}
	}
	if m.UpperLimit != nil {
		if cfg.UpperLimit, err = m.UpperLimit.Knot(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
