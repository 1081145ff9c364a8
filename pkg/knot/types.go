// Package knot defines the KNoT data point vocabulary: semantic type ids,
// value kinds, units, event flags and the pure validators that decide whether
// a schema or an event configuration is acceptable.
package knot

import "fmt"

// InvalidID marks a data point slot which is not registered.
const InvalidID uint8 = 0xff

// Size limits shared with the remote side.
const (
	// DataNameLen is the maximum length of a data point name.
	DataNameLen = 23
	// DataRawSize is the capacity of a raw payload.
	DataRawSize = 16
)

// TypeID is the semantic category of a data point.
type TypeID uint16

// Basic measurement types carry numbers, logic types carry booleans or
// commands.
const (
	TypeIDNone             TypeID = 0x0000
	TypeIDVoltage          TypeID = 0x0001
	TypeIDCurrent          TypeID = 0x0002
	TypeIDResistence       TypeID = 0x0003
	TypeIDPower            TypeID = 0x0004
	TypeIDTemperature      TypeID = 0x0005
	TypeIDRelativeHumidity TypeID = 0x0006
	TypeIDLuminosity       TypeID = 0x0007
	TypeIDTime             TypeID = 0x0008
	TypeIDMass             TypeID = 0x0009
	TypeIDPressure         TypeID = 0x000a
	TypeIDDistance         TypeID = 0x000b
	TypeIDAngle            TypeID = 0x000c
	TypeIDVolume           TypeID = 0x000d
	TypeIDArea             TypeID = 0x000e
	TypeIDRain             TypeID = 0x000f
	TypeIDDensity          TypeID = 0x0010
	TypeIDLatitude         TypeID = 0x0011
	TypeIDLongitude        TypeID = 0x0012
	TypeIDSpeed            TypeID = 0x0013
	TypeIDVolumeFlow       TypeID = 0x0014
	TypeIDEnergy           TypeID = 0x0015

	TypeIDPresence TypeID = 0xfff1
	TypeIDSwitch   TypeID = 0xfff2
	TypeIDCommand  TypeID = 0xfff3

	TypeIDInvalid TypeID = 0xffff
)

// Unit is the measurement unit of a data point. Unit values are scoped by
// TypeID, e.g. 1 means Celsius for temperatures and Volt for voltages.
type Unit uint8

// Commonly used units.
const (
	UnitNotApplicable Unit = 0

	UnitVoltageV  Unit = 1
	UnitVoltageMV Unit = 2
	UnitVoltageKV Unit = 3

	UnitCurrentA  Unit = 1
	UnitCurrentMA Unit = 2

	UnitTemperatureC Unit = 1
	UnitTemperatureF Unit = 2
	UnitTemperatureK Unit = 3

	UnitRelativeHumidity Unit = 1

	UnitTimeS  Unit = 1
	UnitTimeMS Unit = 2
	UnitTimeUS Unit = 3
)

// unitMax is the highest unit defined for each basic measurement type.
var unitMax = map[TypeID]Unit{
	TypeIDVoltage:          3, // V, mV, kV
	TypeIDCurrent:          2, // A, mA
	TypeIDResistence:       1, // ohm
	TypeIDPower:            3, // W, kW, MW
	TypeIDTemperature:      3, // C, F, K
	TypeIDRelativeHumidity: 1, // %
	TypeIDLuminosity:       3, // lm, cd, lx
	TypeIDTime:             3, // s, ms, us
	TypeIDMass:             4, // kg, g, lb, oz
	TypeIDPressure:         3, // Pa, psi, bar
	TypeIDDistance:         4, // m, cm, mi, km
	TypeIDAngle:            2, // rad, degree
	TypeIDVolume:           4, // l, ml, fl oz, gal
	TypeIDArea:             3, // m2, ha, acre
	TypeIDRain:             1, // mm
	TypeIDDensity:          1, // kg/m3
	TypeIDLatitude:         1, // degree
	TypeIDLongitude:        1, // degree
	TypeIDSpeed:            4, // m/s, cm/s, km/h, mi/h
	TypeIDVolumeFlow:       4, // m3/s, cfm, l/s, gal/min
	TypeIDEnergy:           5, // J, Nm, Wh, kWh, cal
}

// IsBasic indicates a numeric measurement type.
func (t TypeID) IsBasic() bool {
	return t >= TypeIDVoltage && t <= TypeIDEnergy
}

// IsLogic indicates a presence, switch or command type.
func (t TypeID) IsLogic() bool {
	return t >= TypeIDPresence && t <= TypeIDCommand
}

// String implements fmt.Stringer.
func (t TypeID) String() string {
	return fmt.Sprintf("0x%04x", uint16(t))
}

// ValueKind selects the native representation of a value.
type ValueKind uint8

// Value kinds.
const (
	KindInvalid ValueKind = 0
	KindInt     ValueKind = 1
	KindFloat   ValueKind = 2
	KindBool    ValueKind = 3
	KindRaw     ValueKind = 4
)

var kindNames = map[ValueKind]string{
	KindInt:   "int",
	KindFloat: "float",
	KindBool:  "bool",
	KindRaw:   "raw",
}

// String implements fmt.Stringer.
func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsOrdered indicates the kind supports threshold comparisons.
func (k ValueKind) IsOrdered() bool {
	return k == KindInt || k == KindFloat
}

// ParseValueKind parses the name produced by ValueKind.String.
func ParseValueKind(name string) (ValueKind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", name)
}
