package mqtt

import (
	"context"
	"io"
	"sync"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	done     chan struct{}
	stop     sync.Once
}

// DefaultPacketQueueSize is the number of packets buffered by ReadWriter.
const DefaultPacketQueueSize = 16

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, DefaultPacketQueueSize),
		done:     make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice reads everything a device publishes:
// SubTopic = device-id/+
func (p *ReadWriter) ForDevice(deviceID string) *ReadWriter {
	return p.WithTopics(DeviceTopics(deviceID), "")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if p.PubTopic == "" {
		return ErrReadOnly
	}
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. Once it returns, ReadPacket fails with io.EOF.
func (p *ReadWriter) Run(ctx context.Context) error {
	defer p.stop.Do(func() { close(p.done) })
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

// handleMsg waits for a reader while the ReadWriter runs, and drops
// the packet after it stopped.
func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
