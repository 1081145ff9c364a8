package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/stream"
	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

var thermo = knot.Schema{
	TypeID:    knot.TypeIDTemperature,
	ValueKind: knot.KindInt,
	Unit:      knot.UnitTemperatureC,
	Name:      "THERMO",
}

func handleOne(t *testing.T, gw *Gateway, key string, msg msgs.Message) msgs.Message {
	replies := gw.Handle(key, msg)
	require.Len(t, replies, 1)
	return replies[0]
}

// online registers key with a single thermometer.
func online(t *testing.T, gw *Gateway, key string) *msgs.RegisterResponse {
	resp := handleOne(t, gw, key, &msgs.RegisterRequest{DeviceId: 1, Name: "multisensor"})
	reg, ok := resp.(*msgs.RegisterResponse)
	require.True(t, ok)
	require.True(t, reg.Result.OK())
	require.NotEmpty(t, reg.Uuid)
	require.Len(t, reg.Token, 32)
	require.Equal(t, &msgs.SchemaEndResponse{}, handleOne(t, gw, key, msgs.NewSchemaMessage(0, thermo, true)))
	return reg
}

func TestRegisterAndAuth(t *testing.T) {
	gw := New()
	reg := online(t, gw, "t1")

	again := handleOne(t, gw, "t1", &msgs.RegisterRequest{DeviceId: 1, Name: "multisensor"})
	assert.Equal(t, reg, again, "same device keeps its credentials")

	assert.Equal(t, &msgs.AuthResponse{}, handleOne(t, gw, "t2", &msgs.AuthRequest{Uuid: reg.Uuid, Token: reg.Token}))
	assert.Equal(t, &msgs.AuthResponse{Result: msgs.ResultPermission},
		handleOne(t, gw, "t3", &msgs.AuthRequest{Uuid: reg.Uuid, Token: "bad"}))

	info, err := gw.Thing("t2")
	require.NoError(t, err)
	assert.Equal(t, "multisensor", info.Name)
	assert.True(t, info.Online)
	things := gw.Things()
	require.Len(t, things, 3)
	assert.Equal(t, "t1", things[0].Key)
}

func TestThingInfo(t *testing.T) {
	gw := New()
	info, err := gw.Thing("kitchen")
	assert.ErrorIs(t, err, ErrUnknownThing)

	handleOne(t, gw, "kitchen", &msgs.RegisterRequest{DeviceId: 5, Name: "multisensor"})
	info, err = gw.Thing("kitchen")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", info.Key)
	assert.Equal(t, "multisensor", info.Name)
	assert.Equal(t, uint64(5), info.DeviceID)
	assert.NotEmpty(t, info.UUID)

	handleOne(t, gw, "attic", &msgs.RegisterRequest{DeviceId: 6, Name: "lamp"})
	things := gw.Things()
	require.Len(t, things, 2)
	assert.Equal(t, []string{"attic", "kitchen"}, []string{things[0].Key, things[1].Key})
	assert.Equal(t, "lamp", things[0].Name)
}

func TestSchema(t *testing.T) {
	gw := New()
	assert.Equal(t, &msgs.SchemaFragResponse{Result: msgs.ResultInvalid},
		handleOne(t, gw, "t", msgs.NewSchemaMessage(0, thermo, false)), "schema before registration")

	handleOne(t, gw, "t", &msgs.RegisterRequest{DeviceId: 1, Name: "x"})
	bad := thermo
	bad.Unit = 0x7f
	assert.Equal(t, &msgs.SchemaFragResponse{Result: msgs.ResultInvalid},
		handleOne(t, gw, "t", msgs.NewSchemaMessage(0, bad, false)))
	assert.Equal(t, &msgs.SchemaFragResponse{},
		handleOne(t, gw, "t", msgs.NewSchemaMessage(0, thermo, false)))

	info, err := gw.Thing("t")
	require.NoError(t, err)
	assert.False(t, info.Online)
	require.Len(t, info.Data, 1)
}

func TestDataPush(t *testing.T) {
	gw := New()
	clock := fx.NewManualClock(time.Unix(100, 0))
	gw.Clock = clock
	var updates []string
	gw.OnUpdate = func(key string, _ msgs.Message) { updates = append(updates, key) }

	assert.Equal(t, &msgs.DataPushResponse{SensorId: 0, Result: msgs.ResultPermission},
		handleOne(t, gw, "t", &msgs.DataPush{SensorId: 0, Value: msgs.NewValue(knot.Int(1))}))

	online(t, gw, "t")
	testCases := []struct {
		name   string
		push   *msgs.DataPush
		result msgs.Result
	}{
		{"accepted", &msgs.DataPush{SensorId: 0, Value: msgs.NewValue(knot.Int(21))}, msgs.ResultSuccess},
		{"unknown id", &msgs.DataPush{SensorId: 4, Value: msgs.NewValue(knot.Int(21))}, msgs.ResultInvalid},
		{"wrong kind", &msgs.DataPush{SensorId: 0, Value: msgs.NewValue(knot.Bool(true))}, msgs.ResultInvalid},
		{"missing value", &msgs.DataPush{SensorId: 0}, msgs.ResultInvalid},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, &msgs.DataPushResponse{SensorId: tc.push.SensorId, Result: tc.result},
				handleOne(t, gw, "t", tc.push))
		})
	}

	info, err := gw.Thing("t")
	require.NoError(t, err)
	assert.Equal(t, knot.Int(21), info.Data[0].Value)
	assert.Equal(t, time.Unix(100, 0), info.Data[0].Updated)
	assert.NotEmpty(t, updates)
}

func TestCommands(t *testing.T) {
	gw := New()
	online(t, gw, "t")

	poll, err := gw.Poll("t", 0)
	require.NoError(t, err)
	assert.Equal(t, &msgs.DataPoll{SensorId: 0}, poll)
	_, err = gw.Poll("t", 1)
	assert.ErrorIs(t, err, ErrUnknownData)
	_, err = gw.Poll("x", 0)
	assert.ErrorIs(t, err, ErrUnknownThing)

	set, err := gw.Set("t", 0, "-5")
	require.NoError(t, err)
	assert.Equal(t, &msgs.DataSet{SensorId: 0, Value: msgs.NewValue(knot.Int(-5))}, set)
	_, err = gw.Set("t", 0, "warm")
	assert.Error(t, err)

	cfg := knot.NewConfig(knot.OnTime(5), knot.OnUpperThreshold(knot.Int(30)))
	cs, err := gw.SetConfig("t", 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, msgs.NewConfigSet(0, cfg), cs)
	_, err = gw.SetConfig("t", 0, knot.NewConfig(knot.OnTime(0)))
	assert.Error(t, err)

	assert.Nil(t, gw.Handle("t", &msgs.DataSetResponse{SensorId: 0, Value: msgs.NewValue(knot.Int(-5))}))
	info, _ := gw.Thing("t")
	assert.Equal(t, knot.Int(-5), info.Data[0].Value)
	assert.Equal(t, cfg, info.Data[0].Config)

	unreg, err := gw.Unregister("t")
	require.NoError(t, err)
	assert.Equal(t, &msgs.Unregister{}, unreg)
	assert.Nil(t, gw.Handle("t", &msgs.UnregisterResponse{}))
	_, err = gw.Thing("t")
	assert.ErrorIs(t, err, ErrUnknownThing)
}

func TestServeConn(t *testing.T) {
	a, b := net.Pipe()
	thing := stream.New(b)
	defer thing.Close()

	srv := NewServer(New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(ctx, "conn", stream.New(a)) }()

	pkt, err := msgs.Encode(&msgs.RegisterRequest{DeviceId: 9, Name: "n"})
	require.NoError(t, err)
	require.NoError(t, thing.WritePacket(pkt))
	pkt, err = thing.ReadPacket()
	require.NoError(t, err)
	resp, err := msgs.Decode(pkt)
	require.NoError(t, err)
	require.IsType(t, &msgs.RegisterResponse{}, resp)

	go func() { assert.NoError(t, srv.Send("conn", &msgs.DataPoll{SensorId: 3})) }()
	pkt, err = thing.ReadPacket()
	require.NoError(t, err)
	cmd, err := msgs.Decode(pkt)
	require.NoError(t, err)
	assert.Equal(t, &msgs.DataPoll{SensorId: 3}, cmd)

	assert.ErrorIs(t, srv.Send("other", &msgs.DataPoll{}), ErrUnknownThing)
	cancel()
	<-done
}
