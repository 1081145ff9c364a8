package mqtt

import (
	"context"
	"io"
)

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 8),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForThing sets topics used by a thing:
// SubTopic = name/cmd
// PubTopic = name/msg
func (p *ReadWriter) ForThing(name string) *ReadWriter {
	return p.WithTopics(Topic(name, CmdTopic), Topic(name, MsgTopic))
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. It connects the queue and receives packets until
// ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	defer close(p.doneCh)
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer sub.Close()
	if !p.Queue.Client.IsConnected() {
		if err := p.Queue.Connect(); err != nil {
			return err
		}
		defer p.Queue.Close()
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
