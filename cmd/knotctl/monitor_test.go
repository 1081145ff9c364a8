package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

func TestFormatPacket(t *testing.T) {
	pkt, err := msgs.Encode(&msgs.DataPoll{SensorId: 2})
	require.NoError(t, err)
	assert.Equal(t, "t/cmd: [DataPoll] sensor_id:2", FormatPacket("t/cmd", pkt))
	pkt, err = msgs.Encode(&msgs.AuthRequest{Uuid: "u", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, `t/msg: [AuthRequest] uuid:"u" token:"t"`, FormatPacket("t/msg", pkt))
	pkt, err = msgs.Encode(&msgs.Unregister{})
	require.NoError(t, err)
	assert.Equal(t, "t/cmd: [Unregister]", FormatPacket("t/cmd", pkt))

	unknown, err := (&msgs.Typed{TypeId: 0x66}).Encode()
	require.NoError(t, err)
	assert.Contains(t, FormatPacket("t/msg", unknown), "decode error")
	assert.Contains(t, FormatPacket("t/msg", []byte{0xff}), "bad message")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["gateway"])
	assert.True(t, names["monitor"])
	assert.NotNil(t, cmd.PersistentFlags().Lookup("mqtt"))
}
