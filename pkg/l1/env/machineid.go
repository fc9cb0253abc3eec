// Package env provides facts about the host the monitor runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// AppID keys the protected machine id so the raw id never leaves the host.
const AppID = "cobslink"

// deviceIDLen is the number of hex digits kept from the protected id.
const deviceIDLen = 12

var (
	protectedID = machineid.ProtectedID
	hostname    = os.Hostname
)

// MachineID retrieves the unique ID identifying the machine.
func MachineID() (string, error) {
	return protectedID(AppID)
}

// DefaultDeviceID derives a stable device ID from the machine id,
// falling back to the hostname.
func DefaultDeviceID() string {
	if id, err := MachineID(); err == nil && len(id) >= deviceIDLen {
		return id[:deviceIDLen]
	}
	if name, err := hostname(); err == nil && name != "" {
		return name
	}
	return "unknown"
}
