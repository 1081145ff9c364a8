package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

// MsgHandler handles a decoded message.
type MsgHandler interface {
	HandleMsg(context.Context, msgs.Message) error
}

// HandleMsgFunc is func form of MsgHandler.
type HandleMsgFunc func(context.Context, msgs.Message) error

// HandleMsg implements MsgHandler.
func (f HandleMsgFunc) HandleMsg(ctx context.Context, msg msgs.Message) error {
	return f(ctx, msg)
}

// PostToLoop is the MsgHandler posting every message to the loop running
// the pipe.
var PostToLoop = HandleMsgFunc(func(ctx context.Context, msg msgs.Message) error {
	ctl := fx.LoopCtlFrom(ctx)
	ctl.PostMessage(msg)
	ctl.TriggerNext()
	return nil
})

// Pipe is a bi-directional pipe for KNoT messages.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    MsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw, Handler: PostToLoop}
}

// Send encodes and writes a message.
func (p *Pipe) Send(msg msgs.Message) error {
	pkt, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	glog.V(2).Infof("SND %#x %v", msg.TypeID(), msg)
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable.
func (p *Pipe) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, func() error {
		return p.receive(ctx)
	})
}

func (p *Pipe) receive(ctx context.Context) error {
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			glog.Warningf("drop malformed packet: %v", err)
			continue
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("drop packet %#x: %v", typed.TypeId, err)
			// requests are answered, stray responses dropped
			if !typed.IsReply() {
				resp := &msgs.ErrorResponse{RequestType: typed.TypeId, Result: msgs.ResultInvalid}
				if err := p.Send(resp); err != nil {
					return err
				}
			}
			continue
		}
		glog.V(2).Infof("RCV %#x %v", typed.TypeId, msg)
		if h := p.Handler; h != nil {
			if err := h.HandleMsg(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// Close implements io.Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	if adder, ok := p.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(p)
}
