package knot

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTypeID indicates the type id is not defined.
	ErrUnknownTypeID = errors.New("unknown type id")
	// ErrKindMismatch indicates the value kind is not allowed for the type id.
	ErrKindMismatch = errors.New("value kind not allowed for type")
	// ErrUnitMismatch indicates the unit is not allowed for the type id.
	ErrUnitMismatch = errors.New("unit not allowed for type")
)

// Schema describes a data point to the remote side.
type Schema struct {
	TypeID    TypeID
	ValueKind ValueKind
	Unit      Unit
	Name      string
}

// ValidateSchema checks the (type id, value kind, unit) triple is
// self-consistent.
func ValidateSchema(typeID TypeID, kind ValueKind, unit Unit) error {
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("%w: %v", ErrKindMismatch, kind)
	}
	switch {
	case typeID == TypeIDNone:
		if unit != UnitNotApplicable {
			return fmt.Errorf("%w: unit %d for type %v", ErrUnitMismatch, unit, typeID)
		}
	case typeID.IsBasic():
		if !kind.IsOrdered() {
			return fmt.Errorf("%w: %v for type %v", ErrKindMismatch, kind, typeID)
		}
		if unit == UnitNotApplicable || unit > unitMax[typeID] {
			return fmt.Errorf("%w: unit %d for type %v", ErrUnitMismatch, unit, typeID)
		}
	case typeID == TypeIDPresence, typeID == TypeIDSwitch:
		if kind != KindBool {
			return fmt.Errorf("%w: %v for type %v", ErrKindMismatch, kind, typeID)
		}
		if unit != UnitNotApplicable {
			return fmt.Errorf("%w: unit %d for type %v", ErrUnitMismatch, unit, typeID)
		}
	case typeID == TypeIDCommand:
		if kind != KindRaw {
			return fmt.Errorf("%w: %v for type %v", ErrKindMismatch, kind, typeID)
		}
		if unit != UnitNotApplicable {
			return fmt.Errorf("%w: unit %d for type %v", ErrUnitMismatch, unit, typeID)
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownTypeID, typeID)
	}
	return nil
}

// Validate checks the schema with ValidateSchema.
func (s Schema) Validate() error {
	return ValidateSchema(s.TypeID, s.ValueKind, s.Unit)
}

// TruncateName cuts a name to DataNameLen bytes.
func TruncateName(name string) string {
	if len(name) > DataNameLen {
		return name[:DataNameLen]
	}
	return name
}
