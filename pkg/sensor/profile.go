package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrMotionLength indicates the motion payload is not a whole number of
// int16 triples.
var ErrMotionLength = errors.New("invalid motion data length")

// Profile describes how a device scales raw int16 samples.
// A zero scale means the device does not report that kind.
type Profile struct {
	Name    string
	Accel   float64
	Gyro    float64
	Compass float64
}

// Predefined profiles.
var (
	// Thingy52 reports accelerometer in 1/2^10 g, gyroscope with 11 bits
	// and compass with 12 bits of fraction.
	Thingy52 = Profile{
		Name:    "thingy52",
		Accel:   9.8 / (1 << 10),
		Gyro:    1.0 / (1 << 11),
		Compass: 1.0 / (1 << 12),
	}
	// EmpiriKit only streams the accelerometer.
	EmpiriKit = Profile{
		Name:  "empirikit",
		Accel: 9.82 / (1 << 12),
	}
)

var profiles = map[string]Profile{
	Thingy52.Name:  Thingy52,
	EmpiriKit.Name: EmpiriKit,
}

// ProfileByName looks up a predefined profile.
func ProfileByName(name string) (Profile, error) {
	if p, ok := profiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q, expect one of %s",
		name, strings.Join(ProfileNames(), ", "))
}

// ProfileNames lists names of predefined profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scale gets the scale factor of a kind.
func (p Profile) Scale(k Kind) float64 {
	switch k {
	case Accelerometer:
		return p.Accel
	case Gyroscope:
		return p.Gyro
	case Compass:
		return p.Compass
	}
	return 0
}

// ParseMotion decodes a motion payload: little-endian int16 triples for
// accelerometer, gyroscope and compass in that order. Trailing kinds may
// be absent. Kinds the profile doesn't scale are skipped.
func (p Profile) ParseMotion(data []byte, t time.Time) ([]Reading, error) {
	if len(data) == 0 || len(data)%6 != 0 || len(data) > 6*len(Kinds) {
		return nil, fmt.Errorf("%w: %d", ErrMotionLength, len(data))
	}
	readings := make([]Reading, 0, len(data)/6)
	for n := 0; n*6 < len(data); n++ {
		kind := Kinds[n]
		scale := p.Scale(kind)
		if scale == 0 {
			continue
		}
		raw := data[n*6:]
		readings = append(readings, Reading{
			Kind: kind,
			Time: t,
			Vector: Vector{
				X: float64(int16(binary.LittleEndian.Uint16(raw[0:]))) * scale,
				Y: float64(int16(binary.LittleEndian.Uint16(raw[2:]))) * scale,
				Z: float64(int16(binary.LittleEndian.Uint16(raw[4:]))) * scale,
			},
		})
	}
	return readings, nil
}
