package comm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/mqtt"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/stream"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm/websocket"
)

// Open creates the transport of a thing named name from a URL:
//
//	mqtt://broker:1883/prefix    MQTT topics name/msg and name/cmd
//	tcp://gateway:8082           length-prefixed packets over TCP
//	ws://gateway:8081/knot       binary websocket frames
//
// The MQTT transport connects when it's run, the others connect here.
func Open(ctx context.Context, rawURL, name string) (PacketReadWriter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt", "mqtts":
		q, err := mqtt.NewQueueFromURL(rawURL, name)
		if err != nil {
			return nil, err
		}
		return mqtt.NewPacketReadWriter(q).ForThing(name), nil
	case "tcp":
		return stream.Dial(ctx, u.Host)
	case "ws", "wss":
		return websocket.Dial(rawURL)
	}
	return nil, fmt.Errorf("unsupported transport %q", u.Scheme)
}
