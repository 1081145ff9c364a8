// Package gateway implements the cloud side of the KNoT protocol: it
// registers things, keeps their schemas and last values and issues
// commands to them.
package gateway

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
)

var (
	// ErrUnknownThing indicates no session exists for the thing.
	ErrUnknownThing = errors.New("unknown thing")
	// ErrUnknownData indicates the thing announced no such data point.
	ErrUnknownData = errors.New("unknown data point")
)

// DataPoint is the digital twin of a thing's data point.
type DataPoint struct {
	ID      uint8
	Schema  knot.Schema
	Config  knot.Config
	Value   knot.Value
	Updated time.Time
}

// ThingInfo is a snapshot of a thing session. Key identifies the session
// on its transport, Name is the name the thing registered with.
type ThingInfo struct {
	Key      string
	Name     string
	DeviceID uint64
	UUID     string
	Online   bool
	Data     []DataPoint
}

type credentials struct {
	uuid     string
	token    string
	deviceID uint64
	name     string
}

type session struct {
	key    string
	cred   *credentials
	online bool
	data   map[uint8]*DataPoint
}

// Gateway keeps thing sessions. It's safe for concurrent use.
type Gateway struct {
	// Clock stamps received values.
	Clock fx.TimeSource
	// OnUpdate is invoked with the session key after a message was handled.
	// It's invoked without holding the gateway lock.
	OnUpdate func(thing string, msg msgs.Message)

	lock     sync.Mutex
	sessions map[string]*session
	byUUID   map[string]*credentials
	byDevice map[uint64]*credentials
}

// New creates a Gateway.
func New() *Gateway {
	return &Gateway{
		Clock:    fx.SystemClock{},
		sessions: make(map[string]*session),
		byUUID:   make(map[string]*credentials),
		byDevice: make(map[uint64]*credentials),
	}
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Handle processes a message received on the session key and returns the
// replies.
func (g *Gateway) Handle(key string, msg msgs.Message) []msgs.Message {
	g.lock.Lock()
	replies := g.handle(g.session(key), msg)
	g.lock.Unlock()
	if h := g.OnUpdate; h != nil {
		h(key, msg)
	}
	return replies
}

func (g *Gateway) session(key string) *session {
	s := g.sessions[key]
	if s == nil {
		s = &session{key: key, data: make(map[uint8]*DataPoint)}
		g.sessions[key] = s
	}
	return s
}

func (g *Gateway) handle(s *session, in msgs.Message) []msgs.Message {
	switch msg := in.(type) {
	case *msgs.RegisterRequest:
		cred := g.byDevice[msg.DeviceId]
		if cred == nil {
			cred = &credentials{
				uuid:     uuid.NewString(),
				token:    newToken(),
				deviceID: msg.DeviceId,
			}
			g.byDevice[cred.deviceID] = cred
			g.byUUID[cred.uuid] = cred
		}
		cred.name = msg.Name
		s.cred, s.online = cred, false
		s.data = make(map[uint8]*DataPoint)
		glog.Infof("gateway: %s registered as %s", s.key, cred.uuid)
		return reply(&msgs.RegisterResponse{Uuid: cred.uuid, Token: cred.token})

	case *msgs.AuthRequest:
		cred := g.byUUID[msg.Uuid]
		if cred == nil || cred.token != msg.Token {
			glog.Warningf("gateway: %s failed to authenticate", s.key)
			return reply(&msgs.AuthResponse{Result: msgs.ResultPermission})
		}
		s.cred, s.online = cred, true
		return reply(&msgs.AuthResponse{})

	case *msgs.SchemaFrag:
		return reply(&msgs.SchemaFragResponse{Result: g.addSchema(s, msg.SensorId, msg.Schema())})

	case *msgs.SchemaEnd:
		result := g.addSchema(s, msg.SensorId, msg.Schema())
		if result.OK() {
			s.online = true
			glog.Infof("gateway: %s online with %d data points", s.key, len(s.data))
		}
		return reply(&msgs.SchemaEndResponse{Result: result})

	case *msgs.DataPush:
		return reply(&msgs.DataPushResponse{
			SensorId: msg.SensorId,
			Result:   g.update(s, msg.SensorId, msg.Value),
		})

	case *msgs.DataSetResponse:
		g.update(s, msg.SensorId, msg.Value)

	case *msgs.ConfigSetResponse:
		if !msg.Result.OK() {
			glog.Warningf("gateway: %s rejected config of %d: %v", s.key, msg.SensorId, msg.Result)
		}

	case *msgs.UnregisterResponse:
		g.forget(s)

	case *msgs.ErrorResponse:
		glog.Warningf("gateway: %s: %v", s.key, msg)

	default:
		glog.Warningf("gateway: %s sent unexpected %T", s.key, in)
	}
	return nil
}

func reply(msg msgs.Message) []msgs.Message {
	return []msgs.Message{msg}
}

func (g *Gateway) addSchema(s *session, id uint32, schema knot.Schema) msgs.Result {
	if s.cred == nil || id >= uint32(knot.InvalidID) || schema.Name == "" {
		return msgs.ResultInvalid
	}
	if err := schema.Validate(); err != nil {
		glog.Warningf("gateway: %s schema %d: %v", s.key, id, err)
		return msgs.ResultInvalid
	}
	s.data[uint8(id)] = &DataPoint{ID: uint8(id), Schema: schema}
	return msgs.ResultSuccess
}

func (g *Gateway) update(s *session, id uint32, pv *msgs.Value) msgs.Result {
	if !s.online {
		return msgs.ResultPermission
	}
	dp := s.data[uint8(id)]
	if dp == nil || id >= uint32(knot.InvalidID) {
		return msgs.ResultInvalid
	}
	value, err := pv.Knot()
	if err != nil || value.Kind() != dp.Schema.ValueKind {
		glog.Warningf("gateway: %s data %d: invalid value", s.key, id)
		return msgs.ResultInvalid
	}
	dp.Value, dp.Updated = value, g.Clock.Time()
	return msgs.ResultSuccess
}

func (g *Gateway) forget(s *session) {
	if s.cred != nil {
		delete(g.byUUID, s.cred.uuid)
		delete(g.byDevice, s.cred.deviceID)
	}
	delete(g.sessions, s.key)
}

// Things returns the snapshots of all sessions ordered by key.
func (g *Gateway) Things() []ThingInfo {
	g.lock.Lock()
	defer g.lock.Unlock()
	things := make([]ThingInfo, 0, len(g.sessions))
	for _, s := range g.sessions {
		things = append(things, s.info())
	}
	sort.Slice(things, func(i, j int) bool { return things[i].Key < things[j].Key })
	return things
}

// Thing returns the snapshot of a session.
func (g *Gateway) Thing(key string) (ThingInfo, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	s := g.sessions[key]
	if s == nil {
		return ThingInfo{}, fmt.Errorf("%w: %s", ErrUnknownThing, key)
	}
	return s.info(), nil
}

func (s *session) info() ThingInfo {
	info := ThingInfo{Key: s.key, Online: s.online}
	if s.cred != nil {
		info.Name, info.DeviceID, info.UUID = s.cred.name, s.cred.deviceID, s.cred.uuid
	}
	for _, dp := range s.data {
		info.Data = append(info.Data, *dp)
	}
	sort.Slice(info.Data, func(i, j int) bool { return info.Data[i].ID < info.Data[j].ID })
	return info
}

func (g *Gateway) dataPoint(thing string, id uint8) (*DataPoint, error) {
	s := g.sessions[thing]
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThing, thing)
	}
	dp := s.data[id]
	if dp == nil {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownData, thing, id)
	}
	return dp, nil
}

// Poll builds the command requesting the value of a data point.
func (g *Gateway) Poll(thing string, id uint8) (msgs.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if _, err := g.dataPoint(thing, id); err != nil {
		return nil, err
	}
	return &msgs.DataPoll{SensorId: uint32(id)}, nil
}

// Set builds the command setting a data point from its textual value.
func (g *Gateway) Set(thing string, id uint8, value string) (msgs.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	dp, err := g.dataPoint(thing, id)
	if err != nil {
		return nil, err
	}
	v, err := knot.ParseValue(dp.Schema.ValueKind, value)
	if err != nil {
		return nil, err
	}
	if raw, ok := v.(knot.Raw); ok && len(raw) > knot.DataRawSize {
		return nil, fmt.Errorf("raw value longer than %d bytes", knot.DataRawSize)
	}
	return &msgs.DataSet{SensorId: uint32(id), Value: msgs.NewValue(v)}, nil
}

// SetConfig builds the command replacing the event configuration of a data
// point.
func (g *Gateway) SetConfig(thing string, id uint8, cfg knot.Config) (msgs.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	dp, err := g.dataPoint(thing, id)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(dp.Schema.ValueKind); err != nil {
		return nil, err
	}
	dp.Config = cfg
	return msgs.NewConfigSet(id, cfg), nil
}

// Unregister builds the command removing a thing.
func (g *Gateway) Unregister(thing string) (msgs.Message, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.sessions[thing] == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThing, thing)
	}
	return &msgs.Unregister{}, nil
}
