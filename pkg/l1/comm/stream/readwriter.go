package stream

import (
	"io"
	"sync"
	"time"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
)

// DefaultWriteTimeout bounds a packet write on links supporting
// write deadlines, e.g. net.Conn.
const DefaultWriteTimeout = 5 * time.Second

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// ReadWriter implements PacketReadWriter.
// Each packet is COBS encoded and terminated by a zero byte.
type ReadWriter struct {
	// WriteTimeout is applied when the underlying stream supports
	// write deadlines. 0 disables it.
	WriteTimeout time.Duration

	rw io.ReadWriter
	r  *cobs.Reader
	w  *cobs.Writer

	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{
		WriteTimeout: DefaultWriteTimeout,
		rw:           s,
		r:            cobs.NewReader(s),
		w:            cobs.NewWriter(s),
	}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	return p.r.ReadFrame()
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	if d, ok := p.rw.(writeDeadliner); ok && p.WriteTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(p.WriteTimeout)); err != nil {
			return err
		}
	}
	return p.w.WriteFrame(pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
