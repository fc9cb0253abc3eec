// Package sensor turns motion events received from a COBS framed device
// link into typed readings and delivers them to subscribers.
package sensor

import (
	"fmt"
	"math"
	"time"
)

// Kind identifies the sensor producing a Reading.
type Kind int

// Kinds of motion sensors.
const (
	Accelerometer Kind = iota
	Gyroscope
	Compass
)

// Kinds lists all kinds in the order they appear in a motion event.
var Kinds = []Kind{Accelerometer, Gyroscope, Compass}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	case Compass:
		return "compass"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unit is the physical unit of readings of this kind.
func (k Kind) Unit() string {
	switch k {
	case Accelerometer:
		return "m/s²"
	case Gyroscope:
		return "deg/s"
	case Compass:
		return "µT"
	}
	return ""
}

// ParseKind parses the name of a kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor kind %q", name)
}

// Vector is a 3-axis value.
type Vector struct {
	X, Y, Z float64
}

// Magnitude is the euclidean length of the vector.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Reading is a single scaled sample from a sensor.
type Reading struct {
	Kind Kind
	Time time.Time
	Vector
}

// String implements fmt.Stringer.
func (r Reading) String() string {
	return fmt.Sprintf("%s (%.3f, %.3f, %.3f) %s", r.Kind, r.X, r.Y, r.Z, r.Kind.Unit())
}
