package sensor

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cobslink/pkg/l0/comm"
)

// Packet codes understood by motion devices.
const (
	CodeStartStream byte = 0x02
	CodeStopStream  byte = 0x04
	CodeMotion      byte = comm.CodeEvent | 0x01
)

// DefaultCommandTimeout limits the wait for a command reply.
const DefaultCommandTimeout = time.Second

// Device drives a motion device over a packet link and publishes
// readings to a Hub.
type Device struct {
	Client  *comm.Client
	Profile Profile
	Hub     *Hub

	// StreamRate in Hz. When non-zero, streaming is started
	// every time the link comes up.
	StreamRate     uint16
	CommandTimeout time.Duration
	// OnLinkState is called from Run when the link state changes.
	OnLinkState func(comm.LinkState)

	now func() time.Time
}

// NewDevice creates a Device.
func NewDevice(client *comm.Client, profile Profile, hub *Hub) *Device {
	return &Device{
		Client:         client,
		Profile:        profile,
		Hub:            hub,
		CommandTimeout: DefaultCommandTimeout,
		now:            time.Now,
	}
}

// StartStream asks the device to stream motion events at rate Hz.
func (d *Device) StartStream(ctx context.Context, rate uint16) error {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, rate)
	_, err := d.do(ctx, &comm.Packet{Code: CodeStartStream, Data: data})
	return err
}

// StopStream stops streaming.
func (d *Device) StopStream(ctx context.Context) error {
	_, err := d.do(ctx, &comm.Packet{Code: CodeStopStream})
	return err
}

func (d *Device) do(ctx context.Context, pkt *comm.Packet) (comm.Result, error) {
	if d.CommandTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, d.CommandTimeout)
		defer cancel()
	}
	r := d.Client.Do(pkt).Wait(ctx)
	return r, r.Err
}

// HandleEvent converts an event packet into readings.
func (d *Device) HandleEvent(pkt *comm.Packet) {
	switch pkt.Code {
	case CodeMotion:
		now := time.Now
		if d.now != nil {
			now = d.now
		}
		readings, err := d.Profile.ParseMotion(pkt.Data, now())
		if err != nil {
			glog.Warningf("bad motion event: %v", err)
			return
		}
		d.Hub.Publish(readings...)
	default:
		glog.V(2).Infof("ignore event %02x", pkt.Code)
	}
}

// Run consumes events from the client until the context is done.
func (d *Device) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pkt := <-d.Client.EventChan():
			d.HandleEvent(pkt)
		case state := <-d.Client.StateChan():
			glog.Infof("link %s", state)
			if fn := d.OnLinkState; fn != nil {
				fn(state)
			}
			if state.IsReady() && d.StreamRate > 0 {
				// the reply is delivered while events keep flowing.
				go d.startStream(ctx)
			}
		}
	}
}

func (d *Device) startStream(ctx context.Context) {
	if err := d.StartStream(ctx, d.StreamRate); err != nil {
		glog.Errorf("start stream at %dHz: %v", d.StreamRate, err)
		return
	}
	glog.Infof("streaming at %dHz", d.StreamRate)
}
