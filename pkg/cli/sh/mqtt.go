package sh

import (
	"context"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cobslink/pkg/l1/comm/mqtt"
	"github.com/robotalks/cobslink/pkg/l1/msgs"
)

// Queue connects to the broker on first use.
func (s *Shell) Queue() (*mqtt.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	q, err := mqtt.NewQueueFromURL(s.Config.MQTTURL)
	if err != nil {
		return nil, err
	}
	if err := q.ConnectAndWait(); err != nil {
		return nil, fmt.Errorf("connect %s error: %w", s.Config.MQTTURL, err)
	}
	s.queue = q
	return q, nil
}

// FormatStatus prints DeviceStatus into friendly string for display.
func FormatStatus(status *msgs.DeviceStatus) string {
	return fmt.Sprintf("%s: %s (%s, %s)", status.DeviceID, status.Link, status.Profile, status.Device)
}

// FormatMessage prints a message received from a device.
func FormatMessage(msg msgs.Message) string {
	switch m := msg.(type) {
	case *msgs.Reading:
		if r, err := m.SensorReading(); err == nil {
			return fmt.Sprintf("%s %s", m.DeviceID, r)
		}
	case *msgs.DeviceStatus:
		return FormatStatus(m)
	}
	return msg.String()
}

func parseDuration(c *ishell.Context, n int) (time.Duration, bool) {
	if len(c.Args) <= n {
		return 0, true
	}
	d, err := time.ParseDuration(c.Args[n])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	return d, true
}

var (
	// DiscoverCmd lists devices known to the broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"ls"},
		Help:    "[timeout]",
		Func: func(c *ishell.Context) {
			timeout, ok := parseDuration(c, 0)
			if !ok {
				return
			}
			s := ShellFrom(c)
			q, err := s.Queue()
			if err != nil {
				c.Err(err)
				return
			}
			ctx, done := s.Context()
			defer done()
			found, err := mqtt.Discover(ctx, q, timeout)
			if err != nil && err != context.Canceled {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.Print(c, "", found)
				return
			}
			for _, status := range found {
				c.Println(FormatStatus(status))
			}
		},
	}

	// WatchCmd prints messages published by a device.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "DEVICE-ID [duration]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("device id required"))
				return
			}
			duration, ok := parseDuration(c, 1)
			if !ok {
				return
			}
			s := ShellFrom(c)
			q, err := s.Queue()
			if err != nil {
				c.Err(err)
				return
			}
			ctx, done := s.Context()
			defer done()
			if duration > 0 {
				var cancel func()
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			rw := mqtt.NewPacketReadWriter(q).ForDevice(c.Args[0])
			go rw.Run(ctx)
			for {
				pkt, err := rw.ReadPacket()
				if err != nil {
					return
				}
				msg, err := msgs.DecodeMessage(pkt)
				if err != nil {
					c.Printf("bad message: %v\n", err)
					continue
				}
				s.Print(c, FormatMessage(msg), msg)
			}
		},
	}
)
