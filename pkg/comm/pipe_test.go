package comm

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/stream"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

func TestPipe(t *testing.T) {
	a, b := net.Pipe()
	peer := stream.New(b)
	defer peer.Close()

	received := make(chan msgs.Message, 1)
	pipe := NewPipe(stream.New(a))
	pipe.Handler = HandleMsgFunc(func(_ context.Context, msg msgs.Message) error {
		received <- msg
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Run(ctx) }()

	pkt, err := msgs.Encode(&msgs.DataPoll{SensorId: 2})
	require.NoError(t, err)
	require.NoError(t, peer.WritePacket(pkt))
	select {
	case msg := <-received:
		require.Equal(t, &msgs.DataPoll{SensorId: 2}, msg)
	case <-time.After(time.Second):
		t.Fatal("message not received")
	}

	// unknown requests are answered
	pkt, err = (&msgs.Typed{TypeId: 0x66}).Encode()
	require.NoError(t, err)
	require.NoError(t, peer.WritePacket(pkt))
	pkt, err = peer.ReadPacket()
	require.NoError(t, err)
	resp, err := msgs.Decode(pkt)
	require.NoError(t, err)
	require.Equal(t, &msgs.ErrorResponse{RequestType: 0x66, Result: msgs.ResultInvalid}, resp)

	go pipe.Send(&msgs.AuthResponse{Result: msgs.ResultPermission})
	pkt, err = peer.ReadPacket()
	require.NoError(t, err)
	resp, err = msgs.Decode(pkt)
	require.NoError(t, err)
	require.Equal(t, &msgs.AuthResponse{Result: msgs.ResultPermission}, resp)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), "udp://host:1", "thing")
	require.Error(t, err)
	_, err = Open(context.Background(), "mqtt://broker:1883/knot", "thing")
	require.NoError(t, err)
}
