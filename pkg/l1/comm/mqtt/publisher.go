package mqtt

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cobslink/pkg/l1/msgs"
	"github.com/robotalks/cobslink/pkg/sensor"
)

// Link states published in DeviceStatus when the publisher itself
// goes away.
const (
	LinkOffline = "offline"
)

// Publisher publishes readings of a Hub to MQTT:
// <prefix><device-id>/<kind> for readings and a retained
// <prefix><device-id>/status for the device status.
type Publisher struct {
	Queue *Queue
	Hub   *sensor.Hub
	Kinds []sensor.Kind
	// BufferSize of the hub subscription.
	BufferSize int

	status     msgs.DeviceStatus
	statusLock sync.Mutex
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, status msgs.DeviceStatus, hub *sensor.Hub) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	offline := status
	offline.Link = LinkOffline
	will, err := msgs.Encode(&offline)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+StatusTopic(status.DeviceID), will, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("cobslink:" + status.DeviceID)
	}
	p := &Publisher{Hub: hub, status: status}
	p.Queue = NewQueue(opts, topicPrefix)
	p.Queue.OnConnect = func(*Queue) { p.publishStatus() }
	return p, nil
}

// DeviceID returns the id of the device.
func (p *Publisher) DeviceID() string {
	return p.status.DeviceID
}

// UpdateLink updates the link state in the published status.
func (p *Publisher) UpdateLink(link string) {
	p.statusLock.Lock()
	p.status.Link = link
	p.statusLock.Unlock()
	p.publishStatus()
}

func (p *Publisher) publishStatus() {
	p.statusLock.Lock()
	status := p.status
	p.statusLock.Unlock()
	if _, err := p.Queue.PubStatus(&status); err != nil {
		glog.Errorf("publish status: %v", err)
	}
}

// Publish publishes a single reading.
func (p *Publisher) Publish(r sensor.Reading) error {
	_, err := p.Queue.PubReading(p.DeviceID(), r)
	return err
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	sub := p.Hub.Subscribe(p.BufferSize, p.Kinds...)
	defer sub.Close()
	p.Queue.Connect()
	defer p.Queue.Close()
	for {
		select {
		case <-ctx.Done():
			p.UpdateLink(LinkOffline)
			return ctx.Err()
		case r, ok := <-sub.C():
			if !ok {
				p.UpdateLink(LinkOffline)
				return nil
			}
			if err := p.Publish(r); err != nil {
				glog.Errorf("publish reading: %v", err)
			}
		}
	}
}
