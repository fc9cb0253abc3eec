package monitor

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
	"github.com/robotalks/cobslink/pkg/l0/comm"
	"github.com/robotalks/cobslink/pkg/l1/comm/stream"
	"github.com/robotalks/cobslink/pkg/l1/msgs"
	"github.com/robotalks/cobslink/pkg/sensor"
)

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"no device", func(c *Config) { c.Device = "" }, false},
		{"bad baud", func(c *Config) { c.Baud = 0 }, false},
		{"bad rate", func(c *Config) { c.StreamRate = 70000 }, false},
		{"bad profile", func(c *Config) { c.Profile = "phone" }, false},
		{"bad policy", func(c *Config) { c.Policy = "retry" }, false},
		{"empirikit partial", func(c *Config) { c.Profile, c.Policy = "empirikit", "partial" }, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			conf.DeviceID = "dev"
			tc.modify(conf)
			if tc.valid {
				require.NoError(t, conf.Validate())
			} else {
				require.Error(t, conf.Validate())
			}
		})
	}
}

func TestNewConfigCopiesDefault(t *testing.T) {
	conf := NewConfig()
	conf.Device = "tcp://localhost:1"
	require.NotEqual(t, conf.Device, Default().Device)
}

// fakeDevice is the device end of a piped link.
type fakeDevice struct {
	t    *testing.T
	conn net.Conn
	r    *cobs.Reader
	w    *cobs.Writer
}

func (d *fakeDevice) expectCommand(code byte) *comm.Packet {
	frame, err := d.r.ReadFrame()
	require.NoError(d.t, err)
	pkt, err := comm.ParsePacket(frame)
	require.NoError(d.t, err)
	require.Equal(d.t, code, pkt.Code)
	return pkt
}

func (d *fakeDevice) send(pkt ...byte) {
	require.NoError(d.t, d.w.WriteFrame(pkt))
}

func newTestMonitor(t *testing.T) (*Monitor, chan *fakeDevice) {
	conf := NewConfig()
	conf.DeviceID = "dev"
	conf.Device = "pipe"
	conf.StreamRate = 20
	conf.Reconnect = 10 * time.Millisecond
	conf.HTTPAddr = ""
	conf.MQTTURL = ""
	conf.TCPAddr = "127.0.0.1:0"
	m, err := conf.New()
	require.NoError(t, err)

	devCh := make(chan *fakeDevice, 1)
	m.open = func(name string, baud int) (io.ReadWriteCloser, error) {
		require.Equal(t, "pipe", name)
		host, dev := net.Pipe()
		devCh <- &fakeDevice{t: t, conn: dev, r: cobs.NewReader(dev), w: cobs.NewWriter(dev)}
		return host, nil
	}
	return m, devCh
}

func nextDevice(t *testing.T, devCh chan *fakeDevice) *fakeDevice {
	select {
	case d := <-devCh:
		return d
	case <-time.After(time.Second):
		t.Fatal("device not opened")
	}
	return nil
}

func TestMonitor(t *testing.T) {
	m, devCh := newTestMonitor(t)
	ctx, cancel := context.WithCancel(context.TODO())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	conn, err := net.Dial("tcp", m.TCPServer.Listener.Addr().String())
	require.NoError(t, err)
	client := stream.New(conn)
	defer client.Close()
	require.Eventually(t, func() bool { return m.Broadcaster.Len() == 1 }, time.Second, time.Millisecond)

	dev := nextDevice(t, devCh)
	req := dev.expectCommand(sensor.CodeStartStream)
	require.Equal(t, []byte{20, 0}, req.Data)
	dev.send(1, sensor.CodeStartStream, byte(req.Seq))
	dev.send(2, sensor.CodeMotion, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00)

	pkt, err := client.ReadPacket()
	require.NoError(t, err)
	msg, err := msgs.DecodeMessage(pkt)
	require.NoError(t, err)
	reading := msg.(*msgs.Reading)
	require.Equal(t, "dev", reading.DeviceID)
	require.Equal(t, "accelerometer", reading.Kind)
	require.InDelta(t, 4.9, reading.X, 1e-9)

	// the link is reopened and streaming restarted.
	dev.conn.Close()
	dev = nextDevice(t, devCh)
	dev.expectCommand(sensor.CodeStartStream)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor not stopped")
	}
}

func TestMonitorStopsWithoutReconnect(t *testing.T) {
	m, devCh := newTestMonitor(t)
	m.Config.Reconnect = 0
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(context.TODO()) }()

	dev := nextDevice(t, devCh)
	dev.conn.Close()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor not stopped")
	}
}
