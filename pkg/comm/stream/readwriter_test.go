package stream

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{0, 5, 'h', 'e', 'l', 'l', 'o', 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, "hello", string(pkt))
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Error(t, err)

	require.ErrorIs(t, rw.WritePacket(make([]byte, MaxPacketSize+1)), ErrPacketTooLarge)
}

func TestReadWriterTruncated(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{0, 4, 'a'}))
	_, err := rw.ReadPacket()
	require.Error(t, err)
}

func TestReadWriterConn(t *testing.T) {
	a, b := net.Pipe()
	ra, rb := New(a), New(b)
	defer ra.Close()
	defer rb.Close()

	go ra.WritePacket([]byte{1, 2, 3})
	pkt, err := rb.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
}
