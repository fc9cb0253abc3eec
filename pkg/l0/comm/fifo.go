package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
)

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// StateNotifier is called when the link state changed.
type StateNotifier interface {
	StateChanged(context.Context, LinkState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, LinkState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state LinkState) {
	f(ctx, state)
}

// LinkState indicates the state of the link.
type LinkState int

const (
	// LinkDown means FIFO is not running on the link.
	LinkDown LinkState = iota
	// LinkUp means FIFO is running and packets can be sent.
	LinkUp
)

// IsReady indicates if the link is ready for packets.
func (s LinkState) IsReady() bool {
	return s == LinkUp
}

// String implements fmt.Stringer.
func (s LinkState) String() string {
	if s == LinkUp {
		return "up"
	}
	return "down"
}

// DefaultReadSize is the default size of a read from the link.
const DefaultReadSize = 64

// FIFO send/recv packets framed with COBS.
type FIFO struct {
	ReadWriter io.ReadWriter
	Handler    PacketHandler
	Notifier   StateNotifier
	Policy     cobs.MalformedPolicy
	ReadSize   int

	state LinkState
	lock  sync.RWMutex

	// sendLock serializes writes to the link. seq and sendBuf are
	// guarded by it, so a blocking write never holds lock.
	sendLock sync.Mutex
	seq      PacketSeq
	sendBuf  []byte
}

// NewFIFO creates a FIFO.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return &FIFO{
		ReadWriter: rw,
		ReadSize:   DefaultReadSize,
		seq:        NewPacketSeq(),
	}
}

// SetReadWriter replaces the link. It's used to reattach a FIFO to a
// reopened link between runs.
func (f *FIFO) SetReadWriter(rw io.ReadWriter) {
	f.lock.Lock()
	f.ReadWriter = rw
	f.lock.Unlock()
}

// State gets the state.
func (f *FIFO) State() LinkState {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.state
}

// Send sends a packet. The sequence number of the packet is assigned.
func (f *FIFO) Send(pkt *Packet) error {
	f.sendLock.Lock()
	defer f.sendLock.Unlock()
	f.lock.RLock()
	ready, link := f.state.IsReady(), f.ReadWriter
	f.lock.RUnlock()
	if !ready {
		return ErrNotReady
	}
	pkt.Seq = f.seq
	f.sendBuf = cobs.AppendFrame(f.sendBuf[:0], pkt.AppendTo(make([]byte, 0, len(pkt.Data)+2)))
	if _, err := link.Write(f.sendBuf); err != nil {
		return err
	}
	f.seq = f.seq.Next()
	framesSent.Inc()
	return nil
}

// Run processes the FIFO in the background until the context is canceled
// or the link fails. A frame in flight at that point is discarded.
func (f *FIFO) Run(ctx context.Context) error {
	decoder := cobs.StreamDecoder{
		Policy: f.Policy,
		Handler: cobs.HandleFrameFunc(func(frame []byte) {
			f.handleFrame(ctx, frame)
		}),
		ErrorHandler: cobs.HandleFrameErrorFunc(func(err *cobs.FrameError) {
			frameErrors.WithLabelValues("frame").Inc()
			glog.Warningf("drop frame: %v", err)
		}),
	}
	f.lock.RLock()
	link := f.ReadWriter
	f.lock.RUnlock()
	f.setState(ctx, LinkUp)
	defer f.setState(ctx, LinkDown)

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, link, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			bytesReceived.Add(float64(len(chunk)))
			for len(chunk) > 0 {
				n, err := decoder.Write(chunk)
				if err != nil {
					frameErrors.WithLabelValues("frame").Inc()
					glog.Warningf("malformed frame: %v", err)
				}
				chunk = chunk[n:]
			}
		case err := <-errCh:
			if decoder.Pending() {
				glog.V(2).Info("discard partial frame on link close")
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *FIFO) readLoop(ctx context.Context, r io.Reader, chunkCh chan []byte, errCh chan error) {
	size := f.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	for {
		buf := make([]byte, size)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (f *FIFO) handleFrame(ctx context.Context, frame []byte) {
	framesReceived.Inc()
	pkt, err := ParsePacket(frame)
	if err != nil {
		frameErrors.WithLabelValues("packet").Inc()
		glog.Warningf("drop packet: %v", err)
		return
	}
	if h := f.Handler; h != nil {
		h.HandlePacket(ctx, pkt)
	}
}

func (f *FIFO) setState(ctx context.Context, state LinkState) {
	var notifier StateNotifier
	f.lock.Lock()
	if f.state != state {
		f.state = state
		notifier = f.Notifier
	}
	f.lock.Unlock()
	if notifier != nil {
		notifier.StateChanged(ctx, state)
	}
}
