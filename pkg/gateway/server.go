package gateway

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/mqtt"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/stream"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/websocket"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

// SendFunc delivers a message to a single thing.
type SendFunc func(msgs.Message) error

// Server connects a Gateway to transports. Things reach it through an MQTT
// broker, plain TCP or websocket.
type Server struct {
	Gateway *Gateway

	lock  sync.RWMutex
	peers map[string]SendFunc
}

// NewServer creates a Server.
func NewServer(gw *Gateway) *Server {
	return &Server{Gateway: gw, peers: make(map[string]SendFunc)}
}

// Send delivers a command to the thing of session key.
func (s *Server) Send(key string, msg msgs.Message) error {
	s.lock.RLock()
	send := s.peers[key]
	s.lock.RUnlock()
	if send == nil {
		return fmt.Errorf("%w: %s is not connected", ErrUnknownThing, key)
	}
	return send(msg)
}

func (s *Server) attach(key string, send SendFunc) {
	s.lock.Lock()
	s.peers[key] = send
	s.lock.Unlock()
}

func (s *Server) detach(key string) {
	s.lock.Lock()
	delete(s.peers, key)
	s.lock.Unlock()
}

func (s *Server) dispatch(key string, msg msgs.Message, send SendFunc) error {
	for _, reply := range s.Gateway.Handle(key, msg) {
		if err := send(reply); err != nil {
			return err
		}
	}
	return nil
}

// ServeMQTT serves all things publishing to "+/msg" on the queue until ctx
// is done. The thing name in the topic is the session key.
func (s *Server) ServeMQTT(ctx context.Context, q *mqtt.Queue) error {
	sub := q.Sub(mqtt.Topic("+", mqtt.MsgTopic), func(topic string, payload []byte) {
		key := mqtt.ThingFromTopic(topic)
		send := mqttSender(q, key)
		s.attach(key, send)
		msg, err := msgs.Decode(payload)
		if err != nil {
			glog.Warningf("gateway: %s: drop packet: %v", key, err)
			return
		}
		glog.V(2).Infof("RCV %s %#x %v", key, msg.TypeID(), msg)
		if err := s.dispatch(key, msg, send); err != nil {
			glog.Errorf("gateway: %s: %v", key, err)
		}
	})
	defer sub.Close()
	if !q.Client.IsConnected() {
		if err := q.Connect(); err != nil {
			return err
		}
		defer q.Close()
	}
	<-ctx.Done()
	return ctx.Err()
}

func mqttSender(q *mqtt.Queue, key string) SendFunc {
	topic := mqtt.Topic(key, mqtt.CmdTopic)
	return func(msg msgs.Message) error {
		pkt, err := msgs.Encode(msg)
		if err != nil {
			return err
		}
		glog.V(2).Infof("SND %s %#x %v", key, msg.TypeID(), msg)
		token := q.Pub(topic, pkt)
		token.Wait()
		return token.Error()
	}
}

// ServeConn serves a single thing connected with rw until the connection
// drops or ctx is done.
func (s *Server) ServeConn(ctx context.Context, key string, rw comm.PacketReadWriter) error {
	pipe := comm.NewPipe(rw)
	pipe.Handler = comm.HandleMsgFunc(func(_ context.Context, msg msgs.Message) error {
		return s.dispatch(key, msg, pipe.Send)
	})
	s.attach(key, pipe.Send)
	defer s.detach(key)
	glog.Infof("gateway: %s connected", key)
	err := pipe.Run(ctx)
	glog.Infof("gateway: %s disconnected: %v", key, err)
	return err
}

// Serve accepts length-prefixed stream connections. The remote address is
// the session key.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go s.ServeConn(ctx, conn.RemoteAddr().String(), stream.New(conn))
	}
}

// WebsocketHandler serves things over websocket. The remote address is the
// session key.
func (s *Server) WebsocketHandler(ctx context.Context) xws.Handler {
	return func(conn *xws.Conn) {
		conn.PayloadType = xws.BinaryFrame
		s.ServeConn(ctx, conn.Request().RemoteAddr, websocket.New(conn))
	}
}
