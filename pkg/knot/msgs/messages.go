package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
)

// Result is the status carried by responses.
type Result int32

// Results
const (
	ResultSuccess       Result = 0
	ResultInvalid       Result = 1
	ResultPermission    Result = 2
	ResultInvalidConfig Result = 3
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultInvalid:
		return "invalid"
	case ResultPermission:
		return "permission denied"
	case ResultInvalidConfig:
		return "invalid config"
	}
	return fmt.Sprintf("result(%d)", int32(r))
}

// OK determines if the result is success.
func (r Result) OK() bool { return r == ResultSuccess }

// RegisterRequest asks the gateway for credentials.
type RegisterRequest struct {
	DeviceId uint64 `protobuf:"varint,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	Name     string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
}

// NewMessage implements Message.
func (m *RegisterRequest) NewMessage() fx.Message { return &RegisterRequest{} }

// TypeID implements Message.
func (m *RegisterRequest) TypeID() uint32 { return RegisterRequestTypeID }

// Serializable implements Message.
func (m *RegisterRequest) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *RegisterRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RegisterRequest) Reset() { *m = RegisterRequest{} }

// String implements proto.Message.
func (m *RegisterRequest) String() string { return proto.CompactTextString(m) }

// RegisterResponse carries the issued credentials.
type RegisterResponse struct {
	Result Result `protobuf:"varint,1,opt,name=result,proto3" json:"result,omitempty"`
	Uuid   string `protobuf:"bytes,2,opt,name=uuid,proto3" json:"uuid,omitempty"`
	Token  string `protobuf:"bytes,3,opt,name=token,proto3" json:"token,omitempty"`
}

// NewMessage implements Message.
func (m *RegisterResponse) NewMessage() fx.Message { return &RegisterResponse{} }

// TypeID implements Message.
func (m *RegisterResponse) TypeID() uint32 { return RegisterResponseTypeID }

// Serializable implements Message.
func (m *RegisterResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *RegisterResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RegisterResponse) Reset() { *m = RegisterResponse{} }

// String implements proto.Message.
func (m *RegisterResponse) String() string { return proto.CompactTextString(m) }

// Unregister asks the thing to drop its credentials.
type Unregister struct {
}

// NewMessage implements Message.
func (m *Unregister) NewMessage() fx.Message { return &Unregister{} }

// TypeID implements Message.
func (m *Unregister) TypeID() uint32 { return UnregisterTypeID }

// Serializable implements Message.
func (m *Unregister) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Unregister) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Unregister) Reset() { *m = Unregister{} }

// String implements proto.Message.
func (m *Unregister) String() string { return proto.CompactTextString(m) }

// UnregisterResponse acknowledges Unregister.
type UnregisterResponse struct {
	Result Result `protobuf:"varint,1,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *UnregisterResponse) NewMessage() fx.Message { return &UnregisterResponse{} }

// TypeID implements Message.
func (m *UnregisterResponse) TypeID() uint32 { return UnregisterResponseTypeID }

// Serializable implements Message.
func (m *UnregisterResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UnregisterResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UnregisterResponse) Reset() { *m = UnregisterResponse{} }

// String implements proto.Message.
func (m *UnregisterResponse) String() string { return proto.CompactTextString(m) }

// AuthRequest authenticates a registered thing.
type AuthRequest struct {
	Uuid  string `protobuf:"bytes,1,opt,name=uuid,proto3" json:"uuid,omitempty"`
	Token string `protobuf:"bytes,2,opt,name=token,proto3" json:"token,omitempty"`
}

// NewMessage implements Message.
func (m *AuthRequest) NewMessage() fx.Message { return &AuthRequest{} }

// TypeID implements Message.
func (m *AuthRequest) TypeID() uint32 { return AuthRequestTypeID }

// Serializable implements Message.
func (m *AuthRequest) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *AuthRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AuthRequest) Reset() { *m = AuthRequest{} }

// String implements proto.Message.
func (m *AuthRequest) String() string { return proto.CompactTextString(m) }

// AuthResponse is the result of AuthRequest.
type AuthResponse struct {
	Result Result `protobuf:"varint,1,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *AuthResponse) NewMessage() fx.Message { return &AuthResponse{} }

// TypeID implements Message.
func (m *AuthResponse) TypeID() uint32 { return AuthResponseTypeID }

// Serializable implements Message.
func (m *AuthResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *AuthResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AuthResponse) Reset() { *m = AuthResponse{} }

// String implements proto.Message.
func (m *AuthResponse) String() string { return proto.CompactTextString(m) }

// SchemaFrag describes one data point. More fragments follow.
type SchemaFrag struct {
	SensorId  uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	TypeId    uint32 `protobuf:"varint,2,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	ValueType uint32 `protobuf:"varint,3,opt,name=value_type,json=valueType,proto3" json:"value_type,omitempty"`
	Unit      uint32 `protobuf:"varint,4,opt,name=unit,proto3" json:"unit,omitempty"`
	Name      string `protobuf:"bytes,5,opt,name=name,proto3" json:"name,omitempty"`
}

// NewMessage implements Message.
func (m *SchemaFrag) NewMessage() fx.Message { return &SchemaFrag{} }

// TypeID implements Message.
func (m *SchemaFrag) TypeID() uint32 { return SchemaFragTypeID }

// Serializable implements Message.
func (m *SchemaFrag) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SchemaFrag) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SchemaFrag) Reset() { *m = SchemaFrag{} }

// String implements proto.Message.
func (m *SchemaFrag) String() string { return proto.CompactTextString(m) }

// SchemaFragResponse acknowledges SchemaFrag.
type SchemaFragResponse struct {
	Result Result `protobuf:"varint,1,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *SchemaFragResponse) NewMessage() fx.Message { return &SchemaFragResponse{} }

// TypeID implements Message.
func (m *SchemaFragResponse) TypeID() uint32 { return SchemaFragResponseTypeID }

// Serializable implements Message.
func (m *SchemaFragResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SchemaFragResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SchemaFragResponse) Reset() { *m = SchemaFragResponse{} }

// String implements proto.Message.
func (m *SchemaFragResponse) String() string { return proto.CompactTextString(m) }

// SchemaEnd describes the last data point.
type SchemaEnd struct {
	SensorId  uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	TypeId    uint32 `protobuf:"varint,2,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	ValueType uint32 `protobuf:"varint,3,opt,name=value_type,json=valueType,proto3" json:"value_type,omitempty"`
	Unit      uint32 `protobuf:"varint,4,opt,name=unit,proto3" json:"unit,omitempty"`
	Name      string `protobuf:"bytes,5,opt,name=name,proto3" json:"name,omitempty"`
}

// NewMessage implements Message.
func (m *SchemaEnd) NewMessage() fx.Message { return &SchemaEnd{} }

// TypeID implements Message.
func (m *SchemaEnd) TypeID() uint32 { return SchemaEndTypeID }

// Serializable implements Message.
func (m *SchemaEnd) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SchemaEnd) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SchemaEnd) Reset() { *m = SchemaEnd{} }

// String implements proto.Message.
func (m *SchemaEnd) String() string { return proto.CompactTextString(m) }

// SchemaEndResponse acknowledges SchemaEnd.
type SchemaEndResponse struct {
	Result Result `protobuf:"varint,1,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *SchemaEndResponse) NewMessage() fx.Message { return &SchemaEndResponse{} }

// TypeID implements Message.
func (m *SchemaEndResponse) TypeID() uint32 { return SchemaEndResponseTypeID }

// Serializable implements Message.
func (m *SchemaEndResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SchemaEndResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SchemaEndResponse) Reset() { *m = SchemaEndResponse{} }

// String implements proto.Message.
func (m *SchemaEndResponse) String() string { return proto.CompactTextString(m) }

// DataPush sends the value of a data point to the gateway.
type DataPush struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Value    *Value `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
}

// NewMessage implements Message.
func (m *DataPush) NewMessage() fx.Message { return &DataPush{} }

// TypeID implements Message.
func (m *DataPush) TypeID() uint32 { return DataPushTypeID }

// Serializable implements Message.
func (m *DataPush) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataPush) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataPush) Reset() { *m = DataPush{} }

// String implements proto.Message.
func (m *DataPush) String() string { return proto.CompactTextString(m) }

// DataPushResponse acknowledges DataPush.
type DataPushResponse struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Result   Result `protobuf:"varint,2,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *DataPushResponse) NewMessage() fx.Message { return &DataPushResponse{} }

// TypeID implements Message.
func (m *DataPushResponse) TypeID() uint32 { return DataPushResponseTypeID }

// Serializable implements Message.
func (m *DataPushResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataPushResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataPushResponse) Reset() { *m = DataPushResponse{} }

// String implements proto.Message.
func (m *DataPushResponse) String() string { return proto.CompactTextString(m) }

// DataSet sets the value of an actuator from the gateway.
type DataSet struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Value    *Value `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
}

// NewMessage implements Message.
func (m *DataSet) NewMessage() fx.Message { return &DataSet{} }

// TypeID implements Message.
func (m *DataSet) TypeID() uint32 { return DataSetTypeID }

// Serializable implements Message.
func (m *DataSet) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataSet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataSet) Reset() { *m = DataSet{} }

// String implements proto.Message.
func (m *DataSet) String() string { return proto.CompactTextString(m) }

// DataSetResponse echoes the value applied by DataSet.
type DataSetResponse struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Value    *Value `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
}

// NewMessage implements Message.
func (m *DataSetResponse) NewMessage() fx.Message { return &DataSetResponse{} }

// TypeID implements Message.
func (m *DataSetResponse) TypeID() uint32 { return DataSetResponseTypeID }

// Serializable implements Message.
func (m *DataSetResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataSetResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataSetResponse) Reset() { *m = DataSetResponse{} }

// String implements proto.Message.
func (m *DataSetResponse) String() string { return proto.CompactTextString(m) }

// DataPoll requests the current value of a data point. The thing answers
// with DataPush.
type DataPoll struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
}

// NewMessage implements Message.
func (m *DataPoll) NewMessage() fx.Message { return &DataPoll{} }

// TypeID implements Message.
func (m *DataPoll) TypeID() uint32 { return DataPollTypeID }

// Serializable implements Message.
func (m *DataPoll) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataPoll) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataPoll) Reset() { *m = DataPoll{} }

// String implements proto.Message.
func (m *DataPoll) String() string { return proto.CompactTextString(m) }

// ConfigSet replaces the event configuration of a data point.
type ConfigSet struct {
	SensorId   uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Flags      uint32 `protobuf:"varint,2,opt,name=flags,proto3" json:"flags,omitempty"`
	TimeSec    uint32 `protobuf:"varint,3,opt,name=time_sec,json=timeSec,proto3" json:"time_sec,omitempty"`
	LowerLimit *Value `protobuf:"bytes,4,opt,name=lower_limit,json=lowerLimit,proto3" json:"lower_limit,omitempty"`
	UpperLimit *Value `protobuf:"bytes,5,opt,name=upper_limit,json=upperLimit,proto3" json:"upper_limit,omitempty"`
}

// NewMessage implements Message.
func (m *ConfigSet) NewMessage() fx.Message { return &ConfigSet{} }

// TypeID implements Message.
func (m *ConfigSet) TypeID() uint32 { return ConfigSetTypeID }

// Serializable implements Message.
func (m *ConfigSet) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ConfigSet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ConfigSet) Reset() { *m = ConfigSet{} }

// String implements proto.Message.
func (m *ConfigSet) String() string { return proto.CompactTextString(m) }

// ConfigSetResponse acknowledges ConfigSet.
type ConfigSetResponse struct {
	SensorId uint32 `protobuf:"varint,1,opt,name=sensor_id,json=sensorId,proto3" json:"sensor_id,omitempty"`
	Result   Result `protobuf:"varint,2,opt,name=result,proto3" json:"result,omitempty"`
}

// NewMessage implements Message.
func (m *ConfigSetResponse) NewMessage() fx.Message { return &ConfigSetResponse{} }

// TypeID implements Message.
func (m *ConfigSetResponse) TypeID() uint32 { return ConfigSetResponseTypeID }

// Serializable implements Message.
func (m *ConfigSetResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ConfigSetResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ConfigSetResponse) Reset() { *m = ConfigSetResponse{} }

// String implements proto.Message.
func (m *ConfigSetResponse) String() string { return proto.CompactTextString(m) }

// ErrorResponse reports a request which could not be served.
type ErrorResponse struct {
	RequestType uint32 `protobuf:"varint,1,opt,name=request_type,json=requestType,proto3" json:"request_type,omitempty"`
	Result      Result `protobuf:"varint,2,opt,name=result,proto3" json:"result,omitempty"`
}

// NewErrorResponse creates an ErrorResponse for a request.
func NewErrorResponse(req Message, result Result) *ErrorResponse {
	return &ErrorResponse{RequestType: req.TypeID(), Result: result}
}

// NewMessage implements Message.
func (m *ErrorResponse) NewMessage() fx.Message { return &ErrorResponse{} }

// TypeID implements Message.
func (m *ErrorResponse) TypeID() uint32 { return ErrorResponseTypeID }

// Serializable implements Message.
func (m *ErrorResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ErrorResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ErrorResponse) Reset() { *m = ErrorResponse{} }

// String implements proto.Message.
func (m *ErrorResponse) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *ErrorResponse) Error() string {
	return fmt.Sprintf("request %#x: %v", m.RequestType, m.Result)
}

// TypeIDs
const (
	RegisterRequestTypeID    uint32 = 0x10
	RegisterResponseTypeID   uint32 = RegisterRequestTypeID | TypeIDMaskReply
	UnregisterTypeID         uint32 = 0x12
	UnregisterResponseTypeID uint32 = UnregisterTypeID | TypeIDMaskReply
	AuthRequestTypeID        uint32 = 0x14
	AuthResponseTypeID       uint32 = AuthRequestTypeID | TypeIDMaskReply
	DataPushTypeID           uint32 = 0x20
	DataPushResponseTypeID   uint32 = DataPushTypeID | TypeIDMaskReply
	DataSetTypeID            uint32 = 0x22
	DataSetResponseTypeID    uint32 = DataSetTypeID | TypeIDMaskReply
	DataPollTypeID           uint32 = 0x30
	SchemaFragTypeID         uint32 = 0x40
	SchemaFragResponseTypeID uint32 = SchemaFragTypeID | TypeIDMaskReply
	SchemaEndTypeID          uint32 = 0x42
	SchemaEndResponseTypeID  uint32 = SchemaEndTypeID | TypeIDMaskReply
	ConfigSetTypeID          uint32 = 0x50
	ConfigSetResponseTypeID  uint32 = ConfigSetTypeID | TypeIDMaskReply
	ErrorResponseTypeID      uint32 = 0x7f
)

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]Message{
	RegisterRequestTypeID:    (*RegisterRequest)(nil),
	RegisterResponseTypeID:   (*RegisterResponse)(nil),
	UnregisterTypeID:         (*Unregister)(nil),
	UnregisterResponseTypeID: (*UnregisterResponse)(nil),
	AuthRequestTypeID:        (*AuthRequest)(nil),
	AuthResponseTypeID:       (*AuthResponse)(nil),
	DataPushTypeID:           (*DataPush)(nil),
	DataPushResponseTypeID:   (*DataPushResponse)(nil),
	DataSetTypeID:            (*DataSet)(nil),
	DataSetResponseTypeID:    (*DataSetResponse)(nil),
	DataPollTypeID:           (*DataPoll)(nil),
	SchemaFragTypeID:         (*SchemaFrag)(nil),
	SchemaFragResponseTypeID: (*SchemaFragResponse)(nil),
	SchemaEndTypeID:          (*SchemaEnd)(nil),
	SchemaEndResponseTypeID:  (*SchemaEndResponse)(nil),
	ConfigSetTypeID:          (*ConfigSet)(nil),
	ConfigSetResponseTypeID:  (*ConfigSetResponse)(nil),
	ErrorResponseTypeID:      (*ErrorResponse)(nil),
}
