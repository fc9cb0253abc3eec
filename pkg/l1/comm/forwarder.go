package comm

import (
	"context"

	"github.com/golang/glog"

	"github.com/robotalks/cobslink/pkg/l1/msgs"
	"github.com/robotalks/cobslink/pkg/sensor"
)

// Forwarder encodes readings from a Hub as Typed packets.
type Forwarder struct {
	Hub      *sensor.Hub
	DeviceID string
	Writer   PacketWriter
	Kinds    []sensor.Kind
	// BufferSize of the hub subscription.
	BufferSize int
	// StopOnError stops forwarding when a write fails.
	StopOnError bool
}

// Run implements Runnable.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.Hub.Subscribe(f.BufferSize, f.Kinds...)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-sub.C():
			if !ok {
				return nil
			}
			pkt, err := msgs.Encode(msgs.NewReading(f.DeviceID, r))
			if err != nil {
				return err
			}
			if err = f.Writer.WritePacket(pkt); err != nil {
				if f.StopOnError {
					return err
				}
				glog.V(1).Infof("forward reading: %v", err)
			}
		}
	}
}
