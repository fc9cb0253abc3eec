package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/cobslink/pkg/sensor"
)

// Reading is an Event message carrying a scaled sensor sample.
type Reading struct {
	DeviceID  string  `protobuf:"bytes,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	Kind      string  `protobuf:"bytes,2,opt,name=kind,proto3" json:"kind,omitempty"`
	X         float64 `protobuf:"fixed64,3,opt,name=x,proto3" json:"x,omitempty"`
	Y         float64 `protobuf:"fixed64,4,opt,name=y,proto3" json:"y,omitempty"`
	Z         float64 `protobuf:"fixed64,5,opt,name=z,proto3" json:"z,omitempty"`
	Timestamp int64   `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// NewReading creates a Reading message from a sensor reading.
func NewReading(deviceID string, r sensor.Reading) *Reading {
	return &Reading{
		DeviceID:  deviceID,
		Kind:      r.Kind.String(),
		X:         r.X,
		Y:         r.Y,
		Z:         r.Z,
		Timestamp: r.Time.UnixNano(),
	}
}

// SensorReading converts the message back to a sensor reading.
func (m *Reading) SensorReading() (sensor.Reading, error) {
	kind, err := sensor.ParseKind(m.Kind)
	if err != nil {
		return sensor.Reading{}, err
	}
	return sensor.Reading{
		Kind:   kind,
		Time:   time.Unix(0, m.Timestamp),
		Vector: sensor.Vector{X: m.X, Y: m.Y, Z: m.Z},
	}, nil
}

// NewMessage implements Message.
func (m *Reading) NewMessage() Message { return &Reading{} }

// TypeID implements Message.
func (m *Reading) TypeID() uint32 { return ReadingEventTypeID }

// ProtoMessage implements proto.Message.
func (m *Reading) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Reading) Reset() { *m = Reading{} }

// String implements proto.Message.
func (m *Reading) String() string { return proto.CompactTextString(m) }

// DeviceStatus is an Event message reflecting the device link.
type DeviceStatus struct {
	DeviceID string `protobuf:"bytes,1,opt,name=device_id,json=deviceId,proto3" json:"device_id,omitempty"`
	Profile  string `protobuf:"bytes,2,opt,name=profile,proto3" json:"profile,omitempty"`
	Link     string `protobuf:"bytes,3,opt,name=link,proto3" json:"link,omitempty"`
	Device   string `protobuf:"bytes,4,opt,name=device,proto3" json:"device,omitempty"`
}

// NewMessage implements Message.
func (m *DeviceStatus) NewMessage() Message { return &DeviceStatus{} }

// TypeID implements Message.
func (m *DeviceStatus) TypeID() uint32 { return DeviceStatusEventTypeID }

// ProtoMessage implements proto.Message.
func (m *DeviceStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceStatus) Reset() { *m = DeviceStatus{} }

// String implements proto.Message.
func (m *DeviceStatus) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupSensor uint32 = 0x00030000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	ReadingEventTypeID      uint32 = GroupSensor | TypeIDKindEvent | 0x0001
	DeviceStatusEventTypeID uint32 = GroupSensor | TypeIDKindEvent | 0x0002
)
