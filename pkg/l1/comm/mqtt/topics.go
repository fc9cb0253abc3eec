package mqtt

import (
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/cobslink/pkg/l1/msgs"
	"github.com/robotalks/cobslink/pkg/sensor"
)

// Topic suffixes under a device.
const (
	StatusSuffix = "status"
)

// ReadingTopic is the topic readings of a kind are published to,
// relative to the Queue prefix: <device-id>/<kind>.
func ReadingTopic(deviceID string, kind sensor.Kind) string {
	return deviceID + "/" + kind.String()
}

// StatusTopic is the retained status topic of a device.
func StatusTopic(deviceID string) string {
	return deviceID + "/" + StatusSuffix
}

// DeviceTopics is the wildcard topic matching everything
// published for a device.
func DeviceTopics(deviceID string) string {
	return deviceID + "/+"
}

// PubReading publishes a reading of a device to its kind topic.
func (q *Queue) PubReading(deviceID string, r sensor.Reading) (paho.Token, error) {
	return q.PubMsg(ReadingTopic(deviceID, r.Kind), msgs.NewReading(deviceID, r), 0, false)
}

// PubStatus publishes the retained status of a device.
func (q *Queue) PubStatus(status *msgs.DeviceStatus) (paho.Token, error) {
	return q.PubMsg(StatusTopic(status.DeviceID), status, 1, true)
}

// SubDevice receives every message published by a device.
func (q *Queue) SubDevice(deviceID string, handler MsgHandler) *Subscription {
	return q.SubMsg(DeviceTopics(deviceID), handler)
}

// SubStatus receives status of all devices, retained ones first.
func (q *Queue) SubStatus(handler func(*msgs.DeviceStatus)) *Subscription {
	return q.SubMsg(StatusTopic("+"), func(topic string, msg msgs.Message) {
		if status, ok := msg.(*msgs.DeviceStatus); ok {
			handler(status)
		}
	})
}
