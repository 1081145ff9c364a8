package proxy

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
)

// sensor feeds values to a proxy through its poll callback.
type sensor struct {
	next   knot.Value
	pushes int
}

func (s *sensor) poll(p *Proxy) {
	if p.SetValue(s.next) {
		s.pushes++
	}
}

func newTestRegistry(t *testing.T) (*Registry, *fx.ManualClock) {
	clock := fx.NewManualClock(time.Unix(1000, 0))
	return NewRegistry(4, clock), clock
}

func TestRegisterAndSchema(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.Equal(t, knot.InvalidID, r.LastID())

	p, err := r.Register(2, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, p.ID())

	s, ok := r.Schema(2)
	require.True(t, ok)
	require.Equal(t, knot.Schema{
		TypeID:    knot.TypeIDTemperature,
		ValueKind: knot.KindInt,
		Unit:      knot.UnitTemperatureC,
		Name:      "thermo",
	}, s)
	require.EqualValues(t, 2, r.LastID())

	_, err = r.Register(2, "other", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, nil)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	s, _ = r.Schema(2)
	require.Equal(t, "thermo", s.Name)

	_, err = r.Register(0, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, r.LastID())

	_, ok = r.Schema(1)
	require.False(t, ok)
	_, ok = r.Schema(200)
	require.False(t, ok)
}

func TestRegisterFailures(t *testing.T) {
	testCases := []struct {
		name   string
		id     uint8
		dname  string
		typeID knot.TypeID
		kind   knot.ValueKind
		unit   knot.Unit
		err    error
	}{
		{"capacity", 4, "x", knot.TypeIDNone, knot.KindInt, knot.UnitNotApplicable, ErrOutOfRange},
		{"beyond", 100, "x", knot.TypeIDNone, knot.KindInt, knot.UnitNotApplicable, ErrOutOfRange},
		{"sentinel", knot.InvalidID, "x", knot.TypeIDNone, knot.KindInt, knot.UnitNotApplicable, ErrOutOfRange},
		{"no name", 0, "", knot.TypeIDNone, knot.KindInt, knot.UnitNotApplicable, ErrInvalidSchema},
		{"kind", 0, "x", knot.TypeIDSwitch, knot.KindInt, knot.UnitNotApplicable, ErrInvalidSchema},
		{"unit", 0, "x", knot.TypeIDTemperature, knot.KindFloat, 9, ErrInvalidSchema},
		{"type", 0, "x", knot.TypeIDInvalid, knot.KindRaw, knot.UnitNotApplicable, ErrInvalidSchema},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestRegistry(t)
			p, err := r.Register(tc.id, tc.dname, tc.typeID, tc.kind, tc.unit, nil, nil)
			require.ErrorIs(t, err, tc.err)
			require.Nil(t, p)
			require.Equal(t, knot.InvalidID, r.LastID())
		})
	}
}

func TestRegisterTruncatesName(t *testing.T) {
	r, _ := newTestRegistry(t)
	long := "a-data-point-name-longer-than-allowed"
	_, err := r.Register(0, long, knot.TypeIDNone, knot.KindRaw, knot.UnitNotApplicable, nil, nil)
	require.NoError(t, err)
	s, _ := r.Schema(0)
	require.Equal(t, long[:knot.DataNameLen], s.Name)
}

func TestNewRegistryCapacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewRegistry(0, nil).Capacity())
	require.Equal(t, MaxCapacity, NewRegistry(1000, nil).Capacity())
	require.Equal(t, 3, NewRegistry(3, nil).Capacity())
}

func TestConfigure(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, nil)
	require.NoError(t, err)
	_, err = r.Register(1, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, nil)
	require.NoError(t, err)

	require.ErrorIs(t, r.Configure(9, knot.NewConfig(knot.OnChange())), ErrOutOfRange)
	require.ErrorIs(t, r.Configure(2, knot.NewConfig(knot.OnChange())), ErrNotRegistered)
	require.ErrorIs(t, r.Configure(1, knot.NewConfig(knot.OnUpperThreshold(knot.Bool(true)))), ErrInvalidConfig)
	require.ErrorIs(t, r.Configure(0, knot.NewConfig(knot.OnTime(0))), ErrInvalidConfig)
	require.ErrorIs(t, r.Configure(0, knot.NewConfig(knot.OnUpperThreshold(knot.Float(1)))), ErrInvalidConfig)

	cfg, _ := r.Config(0)
	require.Equal(t, knot.EventNone, cfg.Flags)

	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnTime(5), knot.OnUpperThreshold(knot.Int(100)))))
	cfg, _ = r.Config(0)
	require.Equal(t, knot.EventTime|knot.EventUpperThreshold, cfg.Flags)
	require.EqualValues(t, 5, cfg.TimeSec)

	// full replacement
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnChange())))
	cfg, _ = r.Config(0)
	require.Equal(t, knot.Config{Flags: knot.EventChange}, cfg)
}

func TestOnChange(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := &sensor{next: knot.Int(7)}
	_, err := r.Register(0, "counter", knot.TypeIDNone, knot.KindInt, knot.UnitNotApplicable, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnChange())))

	v, n, ok := r.Read(0, false)
	require.True(t, ok)
	require.Equal(t, knot.Int(7), v)
	require.Equal(t, 4, n)

	_, _, ok = r.Read(0, false)
	require.False(t, ok)
	require.Equal(t, 1, s.pushes)

	s.next = knot.Int(8)
	v, _, ok = r.Read(0, false)
	require.True(t, ok)
	require.Equal(t, knot.Int(8), v)
	_, _, ok = r.Read(0, false)
	require.False(t, ok)
	require.Equal(t, 2, s.pushes)
}

func TestOnChangeFloat(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := &sensor{next: knot.Float(0.5)}
	_, err := r.Register(0, "volts", knot.TypeIDVoltage, knot.KindFloat, knot.UnitVoltageV, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnChange())))

	for _, v := range []float32{0.5, 0.5, 0.25, 0.25} {
		s.next = knot.Float(v)
		r.Read(0, false)
	}
	require.Equal(t, 2, s.pushes)
}

func ints(vs ...int32) []knot.Value {
	out := make([]knot.Value, len(vs))
	for i, v := range vs {
		out[i] = knot.Int(v)
	}
	return out
}

func floats(vs ...float32) []knot.Value {
	out := make([]knot.Value, len(vs))
	for i, v := range vs {
		out[i] = knot.Float(v)
	}
	return out
}

func TestThresholdEdges(t *testing.T) {
	testCases := []struct {
		name   string
		kind   knot.ValueKind
		opt    knot.EventOption
		inputs []knot.Value
		pushes []int
	}{
		{
			name:   "upper",
			kind:   knot.KindInt,
			opt:    knot.OnUpperThreshold(knot.Int(100)),
			inputs: ints(50, 150, 150, 150, 50, 150),
			pushes: []int{1, 5},
		},
		{
			name:   "lower",
			kind:   knot.KindInt,
			opt:    knot.OnLowerThreshold(knot.Int(0)),
			inputs: ints(-1, -5, 3, 0, -2, -2),
			pushes: []int{0, 4},
		},
		{
			name:   "at limit",
			kind:   knot.KindInt,
			opt:    knot.OnUpperThreshold(knot.Int(100)),
			inputs: ints(100, 101, 100, 101),
			pushes: []int{1, 3},
		},
		{
			name:   "float upper",
			kind:   knot.KindFloat,
			opt:    knot.OnUpperThreshold(knot.Float(1.5)),
			inputs: floats(1, 2, 2, 1, 2),
			pushes: []int{1, 4},
		},
		{
			name:   "float lower",
			kind:   knot.KindFloat,
			opt:    knot.OnLowerThreshold(knot.Float(-0.5)),
			inputs: floats(0, -1, -1, 0.25, -0.75),
			pushes: []int{1, 4},
		},
		{
			name:   "float at limit",
			kind:   knot.KindFloat,
			opt:    knot.OnUpperThreshold(knot.Float(1.5)),
			inputs: floats(1.5, 1.75, 1.5, 1.75),
			pushes: []int{1, 3},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestRegistry(t)
			s := &sensor{}
			_, err := r.Register(0, "thermo", knot.TypeIDTemperature, tc.kind, knot.UnitTemperatureC, nil, s.poll)
			require.NoError(t, err)
			require.NoError(t, r.Configure(0, knot.NewConfig(tc.opt)))

			var pushed []int
			for i, in := range tc.inputs {
				s.next = in
				if v, _, ok := r.Read(0, false); ok {
					assert.Equal(t, in, v)
					pushed = append(pushed, i)
				}
			}
			require.Equal(t, tc.pushes, pushed)
		})
	}
}

func TestOnTime(t *testing.T) {
	r, clock := newTestRegistry(t)
	s := &sensor{next: knot.Int(1)}
	_, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnTime(5))))

	var pushedAt []int
	for sec := 0; sec <= 12; sec++ {
		if _, _, ok := r.Read(0, false); ok {
			pushedAt = append(pushedAt, sec)
		}
		clock.Advance(time.Second)
	}
	require.Equal(t, []int{5, 10}, pushedAt)
}

func TestOnTimeKeepsTimerWhileOtherTriggerFires(t *testing.T) {
	r, clock := newTestRegistry(t)
	s := &sensor{next: knot.Int(1)}
	_, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnTime(5), knot.OnChange())))

	clock.Advance(3 * time.Second)
	s.next = knot.Int(2)
	_, _, ok := r.Read(0, false)
	require.True(t, ok)

	clock.Advance(2 * time.Second)
	_, _, ok = r.Read(0, false)
	require.True(t, ok, "period counts from the last timed push")
}

func TestRawTruncation(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := &sensor{}
	_, err := r.Register(0, "plate", knot.TypeIDNone, knot.KindRaw, knot.UnitNotApplicable, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnChange())))

	long := bytes.Repeat([]byte{0xab}, knot.DataRawSize+5)
	s.next = knot.Raw(long)
	v, n, ok := r.Read(0, false)
	require.True(t, ok)
	require.Equal(t, knot.DataRawSize, n)
	require.Equal(t, knot.Raw(long[:knot.DataRawSize]), v)

	// same payload after truncation is not a change
	_, _, ok = r.Read(0, false)
	require.False(t, ok)

	s.next = knot.Raw("ABC")
	v, n, ok = r.Read(0, false)
	require.True(t, ok)
	require.Equal(t, 3, n)
	require.Equal(t, knot.Raw("ABC"), v)

	p, err := r.Proxy(0)
	require.NoError(t, err)
	buf := make([]byte, knot.DataRawSize)
	n, ok = p.Raw(buf)
	require.True(t, ok)
	require.Equal(t, "ABC", string(buf[:n]))
}

func TestWaitResp(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := &sensor{next: knot.Bool(true)}
	_, err := r.Register(0, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, s.poll)
	require.NoError(t, err)
	require.NoError(t, r.Configure(0, knot.NewConfig(knot.OnChange())))

	v, n, ok := r.Read(0, true)
	require.True(t, ok)
	require.Equal(t, knot.Bool(true), v)
	require.Equal(t, 1, n)

	// still pending before confirmation
	_, _, ok = r.Read(0, true)
	require.True(t, ok)

	require.NoError(t, r.ConfirmSent(0))
	_, _, ok = r.Read(0, true)
	require.False(t, ok)

	require.ErrorIs(t, r.ConfirmSent(1), ErrNotRegistered)
}

func TestForceSend(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := &sensor{next: knot.Int(0)}
	_, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, s.poll)
	require.NoError(t, err)

	_, _, ok := r.Read(0, false)
	require.False(t, ok, "no trigger configured")

	require.NoError(t, r.ForceSend(0))
	v, _, ok := r.Read(0, false)
	require.True(t, ok)
	require.Equal(t, knot.Int(0), v)

	_, _, ok = r.Read(0, false)
	require.False(t, ok)
	require.ErrorIs(t, r.ForceSend(7), ErrOutOfRange)
}

func TestReadWithoutPoll(t *testing.T) {
	r, _ := newTestRegistry(t)
	p, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.ForceSend(0))
	_, _, ok := r.Read(0, false)
	require.False(t, ok)
	require.False(t, p.SetValue(knot.Int(3)))
	_, _, ok = r.Read(3, false)
	require.False(t, ok)
}

func TestWrite(t *testing.T) {
	r, _ := newTestRegistry(t)
	var got []knot.Value
	changed := func(p *Proxy) { got = append(got, p.Value()) }

	_, err := r.Register(0, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, changed, nil)
	require.NoError(t, err)
	_, err = r.Register(1, "cmd", knot.TypeIDCommand, knot.KindRaw, knot.UnitNotApplicable, changed, nil)
	require.NoError(t, err)
	_, err = r.Register(2, "thermo", knot.TypeIDTemperature, knot.KindInt, knot.UnitTemperatureC, nil, nil)
	require.NoError(t, err)

	n, err := r.Write(0, knot.Bool(true))
	require.NoError(t, err)
	require.Zero(t, n)

	long := bytes.Repeat([]byte("x"), 40)
	_, err = r.Write(1, knot.Raw(long))
	require.NoError(t, err)
	require.Equal(t, []knot.Value{knot.Bool(true), knot.Raw(long[:knot.DataRawSize])}, got)

	_, err = r.Write(0, knot.Int(1))
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = r.Write(3, knot.Int(1))
	require.ErrorIs(t, err, ErrNotRegistered)
	_, err = r.Write(9, knot.Int(1))
	require.ErrorIs(t, err, ErrOutOfRange)

	// no changed callback
	n, err = r.Write(2, knot.Int(55))
	require.NoError(t, err)
	require.Zero(t, n)
	p, _ := r.Proxy(2)
	v, _ := p.Int()
	require.Zero(t, v)
}

func TestWriteEcho(t *testing.T) {
	r, _ := newTestRegistry(t)
	changed := func(p *Proxy) {
		// an actuator reporting its new state back
		r.ForceSend(p.ID())
		p.SetValue(p.Value())
	}
	p, err := r.Register(0, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, changed, func(*Proxy) {})
	require.NoError(t, err)

	n, err := r.Write(0, knot.Bool(true))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	on, ok := p.Bool()
	require.True(t, ok)
	require.True(t, on)
}

func TestAccessors(t *testing.T) {
	var nilProxy *Proxy
	require.Equal(t, knot.InvalidID, nilProxy.ID())
	_, ok := nilProxy.Bool()
	require.False(t, ok)
	_, ok = nilProxy.Raw(make([]byte, 4))
	require.False(t, ok)
	require.False(t, nilProxy.SetValue(knot.Int(1)))

	r, _ := newTestRegistry(t)
	p, err := r.Register(0, "thermo", knot.TypeIDTemperature, knot.KindFloat, knot.UnitTemperatureC, nil, func(*Proxy) {})
	require.NoError(t, err)
	_, ok = p.Raw(make([]byte, 4))
	require.False(t, ok)
	_, ok = p.Int()
	require.False(t, ok)
	f, ok := p.Float()
	require.True(t, ok)
	require.Zero(t, f)
	require.False(t, p.SetRaw([]byte("x")))
	require.False(t, p.SetValue(knot.Int(1)))
}

func TestReset(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register(1, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, nil)
	require.NoError(t, err)
	r.Stop()
	r.Reset()
	_, ok := r.Schema(1)
	require.False(t, ok)
	require.Equal(t, knot.InvalidID, r.LastID())
	_, err = r.Register(1, "led", knot.TypeIDSwitch, knot.KindBool, knot.UnitNotApplicable, nil, nil)
	require.NoError(t, err)
}
