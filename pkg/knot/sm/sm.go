// Package sm implements the thing side of the KNoT protocol.
//
// The Machine registers (or authenticates) the thing, announces the schema
// of every registered data point and then keeps the data points in sync:
// it answers gateway commands and pushes pending values one at a time,
// waiting for each acknowledgement.
package sm

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/golang/glog"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/msgs"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/storage"
)

// ResponseWindow is how long a request waits for its response before it's
// sent again.
const ResponseWindow = 3 * time.Second

// noResponse means nothing is expected.
const noResponse uint32 = 0

// State is the protocol state of a thing.
type State int

// States
const (
	StateRegister State = iota
	StateAuth
	StateSchema
	StateOnline
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRegister:
		return "REG"
	case StateAuth:
		return "AUTH"
	case StateSchema:
		return "SCH"
	case StateOnline:
		return "ONLINE"
	case StateError:
		return "ERROR"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// CredentialStore persists credentials across restarts.
type CredentialStore interface {
	Load() (storage.Credentials, bool, error)
	Save(storage.Credentials) error
	Clear() error
}

// Config configures a Machine.
type Config struct {
	// Name is announced at registration.
	Name string
	// DeviceID is used when registering. Zero picks a random id.
	DeviceID uint64
}

// Machine is the protocol state machine. It's driven by Run from a single
// goroutine.
type Machine struct {
	// OnStateChange is invoked after every state transition and on Start.
	OnStateChange func(State)

	config Config
	reg    *proxy.Registry
	store  CredentialStore

	state State
	cred  storage.Credentials

	expect   uint32
	expectID uint8
	waiting  bool
	expired  bool
	deadline time.Time

	schemaIndex int
	pushIndex   uint8
	warnedEmpty bool
}

// New creates a Machine over a registry.
func New(config Config, reg *proxy.Registry, store CredentialStore) *Machine {
	return &Machine{config: config, reg: reg, store: store}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Credentials returns the credentials in use.
func (m *Machine) Credentials() storage.Credentials {
	return m.cred
}

// Start selects the first state: authentication if credentials are stored,
// registration otherwise.
func (m *Machine) Start() error {
	cred, found, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	m.expect, m.waiting, m.expired = noResponse, false, false
	m.pushIndex = 0
	if found {
		glog.Info("knot: credentials found")
		m.cred = cred
		m.state = StateAuth
	} else {
		glog.Info("knot: credentials not found")
		m.cred = storage.Credentials{DeviceID: m.newDeviceID()}
		m.state = StateRegister
	}
	glog.V(2).Infof("knot: state %v", m.state)
	m.notify()
	return nil
}

// Stop stops synchronizing.
func (m *Machine) Stop() {
	m.waiting = false
	m.reg.Stop()
}

// Run advances the machine with the current time and the inbound message,
// which may be nil. It returns the message to send, if any.
func (m *Machine) Run(now time.Time, in msgs.Message) msgs.Message {
	gotResp := false
	if m.waiting {
		switch {
		case m.isExpected(in):
			m.waiting, m.expired = false, false
			gotResp = true
			glog.V(4).Infof("knot: got expected response %#x", m.expect)
		case !now.Before(m.deadline):
			m.waiting, m.expired = false, true
			glog.Warningf("knot: response %#x timed out", m.expect)
		case !m.whitelisted(in):
			return nil
		}
	}

	var next State
	var out msgs.Message
	switch m.state {
	case StateRegister:
		next, out = m.register(in, gotResp)
	case StateAuth:
		next, out = m.auth(in, gotResp)
	case StateSchema:
		next, out = m.schema(in, gotResp)
	case StateOnline:
		next, out = m.online(in, gotResp)
	default:
		next = StateError
	}
	m.expired = false

	if next != m.state {
		m.expect = noResponse
		m.state = next
		glog.V(2).Infof("knot: state %v", next)
		m.notify()
	}

	if m.expect == noResponse {
		m.waiting = false
	} else if !m.waiting {
		m.waiting = true
		m.deadline = now.Add(ResponseWindow)
	}
	return out
}

func (m *Machine) notify() {
	if m.OnStateChange != nil {
		m.OnStateChange(m.state)
	}
}

func (m *Machine) newDeviceID() uint64 {
	if m.config.DeviceID != 0 {
		return m.config.DeviceID
	}
	for {
		if id := rand.Uint64(); id != 0 {
			return id
		}
	}
}

func (m *Machine) isExpected(in msgs.Message) bool {
	if in == nil || m.expect == noResponse || in.TypeID() != m.expect {
		return false
	}
	if resp, ok := in.(*msgs.DataPushResponse); ok {
		return resp.SensorId == uint32(m.expectID)
	}
	return true
}

// whitelisted determines the commands served while waiting for a response.
func (m *Machine) whitelisted(in msgs.Message) bool {
	if in == nil || m.state != StateOnline {
		return false
	}
	switch in.(type) {
	case *msgs.DataPoll, *msgs.DataSet, *msgs.ConfigSet, *msgs.Unregister:
		return true
	}
	return false
}

func (m *Machine) register(in msgs.Message, gotResp bool) (State, msgs.Message) {
	if !gotResp {
		m.expect = msgs.RegisterResponseTypeID
		return StateRegister, &msgs.RegisterRequest{
			DeviceId: m.cred.DeviceID,
			Name:     m.config.Name,
		}
	}
	resp := in.(*msgs.RegisterResponse)
	if !resp.Result.OK() || resp.Uuid == "" || resp.Token == "" {
		glog.Errorf("knot: register failed: %v", resp.Result)
		return StateError, nil
	}
	m.cred.UUID, m.cred.Token = resp.Uuid, resp.Token
	return StateSchema, nil
}

func (m *Machine) auth(in msgs.Message, gotResp bool) (State, msgs.Message) {
	if !gotResp {
		m.expect = msgs.AuthResponseTypeID
		return StateAuth, &msgs.AuthRequest{Uuid: m.cred.UUID, Token: m.cred.Token}
	}
	if result := in.(*msgs.AuthResponse).Result; !result.OK() {
		glog.Errorf("knot: authentication failed: %v", result)
		return StateError, nil
	}
	glog.Info("knot: authenticated")
	return StateOnline, nil
}

func (m *Machine) schema(in msgs.Message, gotResp bool) (State, msgs.Message) {
	if !gotResp {
		m.schemaIndex = 0
		return StateSchema, m.nextSchema()
	}
	switch resp := in.(type) {
	case *msgs.SchemaFragResponse:
		// a failed fragment is sent again
		if resp.Result.OK() {
			m.schemaIndex++
		}
		return StateSchema, m.nextSchema()
	case *msgs.SchemaEndResponse:
		if !resp.Result.OK() {
			return StateSchema, m.nextSchema()
		}
	}

	if err := m.store.Save(m.cred); err != nil {
		glog.Errorf("knot: save credentials: %v", err)
		return StateError, nil
	}
	glog.Infof("knot: registered as %s", m.cred.UUID)
	return StateOnline, nil
}

func (m *Machine) nextSchema() msgs.Message {
	last := m.reg.LastID()
	if last == knot.InvalidID {
		if !m.warnedEmpty {
			glog.Warning("knot: no data point registered")
			m.warnedEmpty = true
		}
		m.expect = noResponse
		return nil
	}
	for ; m.schemaIndex <= int(last); m.schemaIndex++ {
		s, ok := m.reg.Schema(uint8(m.schemaIndex))
		if !ok {
			continue
		}
		end := m.schemaIndex == int(last)
		if end {
			m.expect = msgs.SchemaEndResponseTypeID
		} else {
			m.expect = msgs.SchemaFragResponseTypeID
		}
		return msgs.NewSchemaMessage(uint8(m.schemaIndex), s, end)
	}
	m.expect = noResponse
	return nil
}

func (m *Machine) online(in msgs.Message, gotResp bool) (State, msgs.Message) {
	// commands first
	if in != nil && !gotResp {
		if next, out := m.command(in); next != StateOnline || out != nil {
			return next, out
		}
	}
	return m.event(in, gotResp)
}

func (m *Machine) command(in msgs.Message) (State, msgs.Message) {
	switch cmd := in.(type) {
	case *msgs.DataPoll:
		id, ok := m.sensorID(cmd.SensorId)
		if !ok {
			glog.Warningf("knot: poll of invalid id %d", cmd.SensorId)
			return StateOnline, msgs.NewErrorResponse(cmd, msgs.ResultInvalid)
		}
		m.reg.ForceSend(id)
		value, _, ok := m.reg.Read(id, false)
		if !ok {
			glog.Warningf("knot: can't read data point %d", id)
			return StateOnline, msgs.NewErrorResponse(cmd, msgs.ResultInvalid)
		}
		return StateOnline, &msgs.DataPush{SensorId: uint32(id), Value: msgs.NewValue(value)}

	case *msgs.DataSet:
		id, ok := m.sensorID(cmd.SensorId)
		if !ok {
			return StateOnline, msgs.NewErrorResponse(cmd, msgs.ResultInvalid)
		}
		value, err := cmd.Value.Knot()
		if err == nil {
			_, err = m.reg.Write(id, value)
		}
		if err != nil {
			glog.Warningf("knot: set data point %d: %v", id, err)
			return StateOnline, msgs.NewErrorResponse(cmd, msgs.ResultInvalid)
		}
		return StateOnline, &msgs.DataSetResponse{SensorId: cmd.SensorId, Value: cmd.Value}

	case *msgs.ConfigSet:
		resp := &msgs.ConfigSetResponse{SensorId: cmd.SensorId}
		id, ok := m.sensorID(cmd.SensorId)
		if !ok {
			resp.Result = msgs.ResultInvalid
			return StateOnline, resp
		}
		cfg, err := cmd.Config()
		if err == nil {
			err = m.reg.Configure(id, cfg)
		}
		if err != nil {
			glog.Warningf("knot: config data point %d: %v", id, err)
			resp.Result = msgs.ResultInvalidConfig
		}
		return StateOnline, resp

	case *msgs.Unregister:
		if err := m.store.Clear(); err != nil {
			glog.Errorf("knot: clear credentials: %v", err)
		}
		glog.Info("knot: unregistered")
		m.cred = storage.Credentials{DeviceID: m.cred.DeviceID}
		return StateRegister, &msgs.UnregisterResponse{}
	}
	return StateOnline, nil
}

func (m *Machine) sensorID(id uint32) (uint8, bool) {
	if id >= uint32(knot.InvalidID) {
		return 0, false
	}
	_, ok := m.reg.Schema(uint8(id))
	return uint8(id), ok
}

func (m *Machine) event(in msgs.Message, gotResp bool) (State, msgs.Message) {
	if m.expect == msgs.DataPushResponseTypeID {
		switch {
		case gotResp:
			resp := in.(*msgs.DataPushResponse)
			switch resp.Result {
			case msgs.ResultSuccess:
				m.reg.ConfirmSent(m.expectID)
			case msgs.ResultPermission:
				glog.Warning("knot: permission denied, re-authenticating")
				return StateAuth, nil
			default:
				glog.Errorf("knot: push of %d failed: %v", m.expectID, resp.Result)
			}
		case m.expired:
			glog.Errorf("knot: push of %d not acknowledged", m.expectID)
		default:
			// still waiting
			return StateOnline, nil
		}
	}

	last := m.reg.LastID()
	if last == knot.InvalidID {
		m.expect = noResponse
		return StateOnline, nil
	}
	old := m.pushIndex
	for {
		if m.pushIndex < last {
			m.pushIndex++
		} else {
			m.pushIndex = 0
		}
		if value, _, ok := m.reg.Read(m.pushIndex, true); ok {
			m.expect, m.expectID = msgs.DataPushResponseTypeID, m.pushIndex
			return StateOnline, &msgs.DataPush{
				SensorId: uint32(m.pushIndex),
				Value:    msgs.NewValue(value),
			}
		}
		if m.pushIndex == old {
			break
		}
	}
	m.expect = noResponse
	return StateOnline, nil
}
