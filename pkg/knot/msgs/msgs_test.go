package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
)

func TestEncodeDecode(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
	}{
		{"register", &RegisterRequest{DeviceId: 0x1234567890abcdef, Name: "multisensor"}},
		{"credentials", &RegisterResponse{Uuid: "u", Token: "t"}},
		{"schema end", NewSchemaMessage(2, knot.Schema{
			TypeID:    knot.TypeIDCommand,
			ValueKind: knot.KindRaw,
			Name:      "PLATE",
		}, true)},
		{"negative int", &DataPush{SensorId: 1, Value: NewValue(knot.Int(-42))}},
		{"float limits", NewConfigSet(0, knot.NewConfig(
			knot.OnLowerThreshold(knot.Float(-1.5)),
			knot.OnUpperThreshold(knot.Float(30.25)),
		))},
		{"empty", &Unregister{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)
			decoded, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg, decoded)
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	data, err := (&Typed{TypeId: 0x66}).Encode()
	require.NoError(t, err)
	_, err = Decode(data)
	require.Error(t, err)
	require.IsType(t, &ErrUnknownType{}, err)

	_, err = TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)
}

func TestIsReply(t *testing.T) {
	for typeID, msg := range MessageTypes {
		require.Equal(t, typeID, msg.TypeID())
	}
	require.True(t, IsReply(AuthResponseTypeID))
	require.True(t, IsReply(ErrorResponseTypeID))
	require.False(t, IsReply(DataPollTypeID))
	require.False(t, (&Typed{TypeId: SchemaFragTypeID}).IsReply())
}

func TestValueConversion(t *testing.T) {
	for _, v := range []knot.Value{knot.Bool(true), knot.Int(7), knot.Float(0.5), knot.Raw("abc")} {
		back, err := NewValue(v).Knot()
		require.NoError(t, err)
		require.Equal(t, v, back)
	}
	require.Nil(t, NewValue(nil))

	var missing *Value
	_, err := missing.Knot()
	require.ErrorIs(t, err, ErrMissingValue)
	_, err = (&Value{Kind: 9}).Knot()
	require.Error(t, err)
}

func TestConfigSet(t *testing.T) {
	cfg := knot.NewConfig(knot.OnTime(5), knot.OnUpperThreshold(knot.Int(100000)))
	back, err := NewConfigSet(0, cfg).Config()
	require.NoError(t, err)
	require.Equal(t, cfg, back)

	_, err = (&ConfigSet{Flags: 0x100}).Config()
	require.ErrorIs(t, err, knot.ErrUnknownEvent)
	_, err = (&ConfigSet{Flags: 1, TimeSec: 70000}).Config()
	require.Error(t, err)
}

func TestErrorResponse(t *testing.T) {
	e := NewErrorResponse(&DataPoll{}, ResultInvalid)
	require.Equal(t, DataPollTypeID, e.RequestType)
	require.EqualError(t, e, "request 0x30: invalid")
	require.False(t, e.Result.OK())
}
