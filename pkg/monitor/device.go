package monitor

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const tcpScheme = "tcp://"

// OpenDevice opens the link to the device.
func OpenDevice(name string, baud int) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(name, tcpScheme) {
		return net.DialTimeout("tcp", name[len(tcpScheme):], 5*time.Second)
	}
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}
