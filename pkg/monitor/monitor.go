// Package monitor wires a COBS framed sensor link to its consumers:
// logs, MQTT, websocket and TCP clients, and Prometheus metrics.
package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/cobslink/pkg/framework"
	"github.com/robotalks/cobslink/pkg/l0/cobs"
	"github.com/robotalks/cobslink/pkg/l0/comm"
	l1comm "github.com/robotalks/cobslink/pkg/l1/comm"
	"github.com/robotalks/cobslink/pkg/l1/comm/mqtt"
	"github.com/robotalks/cobslink/pkg/l1/comm/stream"
	"github.com/robotalks/cobslink/pkg/l1/comm/websocket"
	"github.com/robotalks/cobslink/pkg/l1/msgs"
	"github.com/robotalks/cobslink/pkg/sensor"
)

// Monitor owns the device link and everything fed by it.
type Monitor struct {
	Config      *Config
	Hub         *sensor.Hub
	Client      *comm.Client
	Device      *sensor.Device
	Broadcaster *l1comm.Broadcaster
	Publisher   *mqtt.Publisher
	TCPServer   *stream.Server
	HTTPServer  *http.Server

	open func(name string, baud int) (io.ReadWriteCloser, error)
}

// New creates a Monitor from the config.
func (c *Config) New() (*Monitor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	profile, _ := sensor.ProfileByName(c.Profile)
	policy, _ := cobs.ParseMalformedPolicy(c.Policy)

	fifo := comm.NewFIFO(nil)
	fifo.Policy = policy
	m := &Monitor{
		Config:      c,
		Hub:         &sensor.Hub{},
		Client:      comm.NewClient(fifo),
		Broadcaster: &l1comm.Broadcaster{},
		open:        OpenDevice,
	}
	m.Device = sensor.NewDevice(m.Client, profile, m.Hub)
	m.Device.StreamRate = uint16(c.StreamRate)
	m.Device.OnLinkState = m.linkStateChanged

	if c.MQTTURL != "" {
		status := msgs.DeviceStatus{
			DeviceID: c.DeviceID,
			Profile:  profile.Name,
			Link:     comm.LinkDown.String(),
			Device:   c.Device,
		}
		pub, err := mqtt.NewPublisher(c.MQTTURL, status, m.Hub)
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %w", err)
		}
		m.Publisher = pub
	}
	if c.TCPAddr != "" {
		s, err := stream.Listen(c.TCPAddr, m.Broadcaster)
		if err != nil {
			return nil, fmt.Errorf("listen %s error: %w", c.TCPAddr, err)
		}
		m.TCPServer = s
	}
	if c.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.Handler(m.Broadcaster))
		mux.Handle("/metrics", promhttp.Handler())
		m.HTTPServer = &http.Server{Addr: c.HTTPAddr, Handler: mux}
	}
	return m, nil
}

// Run implements Runnable.
func (m *Monitor) Run(ctx context.Context) error {
	runner := fx.NewRunnerWith(ctx).WithStopOnError(true)
	defer m.Hub.Close()
	runner.Go(
		fx.NamedRun("link", fx.RunnableFunc(m.runLink)),
		fx.NamedRun("device", m.Device),
		fx.NamedRun("forwarder", &l1comm.Forwarder{
			Hub:      m.Hub,
			DeviceID: m.Config.DeviceID,
			Writer:   m.Broadcaster,
		}),
	)
	if m.Config.LogReadings {
		runner.Go(fx.NamedRun("log", fx.RunnableFunc(m.logReadings)))
	}
	if m.Publisher != nil {
		runner.Go(fx.NamedRun("mqtt", m.Publisher))
	}
	if m.TCPServer != nil {
		glog.Infof("serving readings on tcp %s", m.TCPServer.Listener.Addr())
		runner.Go(fx.NamedRun("tcp", m.TCPServer))
	}
	if m.HTTPServer != nil {
		glog.Infof("serving websocket and metrics on %s", m.HTTPServer.Addr)
		runner.Go(fx.NamedRun("http", fx.RunnableFunc(m.runHTTP)))
	}
	return runner.Wait()
}

// runLink keeps the device link open, reopening it after failures
// when Reconnect is set.
func (m *Monitor) runLink(ctx context.Context) error {
	for {
		err := m.runLinkOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.Config.Reconnect <= 0 {
			return err
		}
		glog.Warningf("link %s: %v, reconnect in %s", m.Config.Device, err, m.Config.Reconnect)
		select {
		case <-time.After(m.Config.Reconnect):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) runLinkOnce(ctx context.Context) error {
	link, err := m.open(m.Config.Device, m.Config.Baud)
	if err != nil {
		return fmt.Errorf("open device error: %w", err)
	}
	glog.Infof("device %s opened", m.Config.Device)
	m.Client.FIFO().SetReadWriter(link)
	return fx.RunWithContextCloser(ctx, link, func() error {
		return m.Client.Run(ctx)
	})
}

func (m *Monitor) runHTTP(ctx context.Context) error {
	err := fx.RunWithContextCloser(ctx, m.HTTPServer, m.HTTPServer.ListenAndServe)
	if err == http.ErrServerClosed {
		return context.Canceled
	}
	return err
}

func (m *Monitor) linkStateChanged(state comm.LinkState) {
	if m.Publisher != nil {
		m.Publisher.UpdateLink(state.String())
	}
}

func (m *Monitor) logReadings(ctx context.Context) error {
	sub := m.Hub.Subscribe(0)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-sub.C():
			if !ok {
				return nil
			}
			glog.Infof("%s: %s", m.Config.DeviceID, r)
		}
	}
}
