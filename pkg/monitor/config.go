package monitor

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
	"github.com/robotalks/cobslink/pkg/l1/env"
	"github.com/robotalks/cobslink/pkg/sensor"
)

// Config defines the configurations of the monitor.
type Config struct {
	// Device is a serial port path, or tcp://host:port for a device
	// exposed over the network.
	Device string
	Baud   int
	// Profile names the sensor scaling profile.
	Profile string
	// StreamRate in Hz requested when the link comes up, 0 to leave the
	// device as is.
	StreamRate uint
	// Policy names the cobs.MalformedPolicy used on the link.
	Policy    string
	Reconnect time.Duration

	// DeviceID identifies the device on MQTT and in messages.
	DeviceID string
	// MQTTURL e.g. mqtt://host:port/topic-prefix, empty to disable.
	MQTTURL string
	// HTTPAddr serves /ws and /metrics, empty to disable.
	HTTPAddr string
	// TCPAddr serves COBS framed readings, empty to disable.
	TCPAddr string
	// LogReadings logs every reading.
	LogReadings bool
}

var defaultConfig = Config{
	Device:     "/dev/ttyACM0",
	Baud:       115200,
	Profile:    sensor.Thingy52.Name,
	StreamRate: 60,
	Policy:     cobs.DiscardMalformed.String(),
	Reconnect:  2 * time.Second,
	HTTPAddr:   ":8080",
}

func init() {
	if val := os.Getenv("COBSLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("COBSLINK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val := os.Getenv("COBSLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("COBSLINK_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
	if val := os.Getenv("COBSLINK_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device, or tcp://host:port.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate.")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Sensor profile: thingy52, empirikit.")
	flag.UintVar(&defaultConfig.StreamRate, "rate", defaultConfig.StreamRate, "Streaming rate in Hz, 0 to not start streaming.")
	flag.StringVar(&defaultConfig.Policy, "malformed", defaultConfig.Policy, "Malformed frame policy: discard, partial, stop.")
	flag.DurationVar(&defaultConfig.Reconnect, "reconnect", defaultConfig.Reconnect, "Delay before reopening the device, 0 to exit on link failure.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, defaults to one derived from machine id.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "Listen address for websocket and metrics.")
	flag.StringVar(&defaultConfig.TCPAddr, "tcp", defaultConfig.TCPAddr, "Listen address for COBS framed readings.")
	flag.BoolVar(&defaultConfig.LogReadings, "log-readings", defaultConfig.LogReadings, "Log every reading.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config and fills in derived defaults.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device must be specified")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.StreamRate > 0xffff {
		return fmt.Errorf("stream rate %d out of range", c.StreamRate)
	}
	if _, err := sensor.ProfileByName(c.Profile); err != nil {
		return err
	}
	if _, err := cobs.ParseMalformedPolicy(c.Policy); err != nil {
		return err
	}
	if c.DeviceID == "" {
		c.DeviceID = env.DefaultDeviceID()
	}
	return nil
}

// MustNew creates a Monitor and fails on error.
func (c *Config) MustNew() *Monitor {
	m, err := c.New()
	if err != nil {
		log.Fatalln(err)
	}
	return m
}
