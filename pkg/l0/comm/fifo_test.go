package comm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cobslink/pkg/l0/cobs"
)

// chanReadWriter delivers injected chunks on Read and captures
// each Write.
type chanReadWriter struct {
	readCh  chan []byte
	writeCh chan []byte
	pending []byte
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{
		readCh:  make(chan []byte, 16),
		writeCh: make(chan []byte, 16),
	}
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		chunk, ok := <-c.readCh
		if !ok {
			return 0, io.EOF
		}
		c.pending = chunk
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	c.writeCh <- append([]byte(nil), p...)
	return len(p), nil
}

func (c *chanReadWriter) inject(chunks ...[]byte) {
	for _, chunk := range chunks {
		c.readCh <- chunk
	}
}

func (c *chanReadWriter) expectWrite(t *testing.T, expected []byte) {
	select {
	case p := <-c.writeCh:
		require.Equal(t, expected, p)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expect write timeout")
	}
}

type fifoTestCtx struct {
	t        *testing.T
	rw       *chanReadWriter
	fifo     *FIFO
	packetCh chan *Packet
	stateCh  chan LinkState
	errCh    chan error
	cancel   func()
}

func newFIFOTestCtx(t *testing.T) *fifoTestCtx {
	tctx := &fifoTestCtx{
		t:        t,
		rw:       newChanReadWriter(),
		packetCh: make(chan *Packet, 16),
		stateCh:  make(chan LinkState, 4),
		errCh:    make(chan error, 1),
	}
	tctx.fifo = NewFIFO(tctx.rw)
	tctx.fifo.seq = PacketSeq(1)
	tctx.fifo.ReadSize = 4
	tctx.fifo.Handler = HandlePacketFunc(func(ctx context.Context, pkt *Packet) {
		tctx.packetCh <- pkt
	})
	tctx.fifo.Notifier = StateChangedFunc(func(ctx context.Context, state LinkState) {
		tctx.stateCh <- state
	})
	return tctx
}

func (c *fifoTestCtx) start() *fifoTestCtx {
	ctx, cancel := context.WithCancel(context.TODO())
	c.cancel = cancel
	go func() {
		c.errCh <- c.fifo.Run(ctx)
	}()
	return c.expectState(LinkUp)
}

func (c *fifoTestCtx) expectState(state LinkState) *fifoTestCtx {
	select {
	case s := <-c.stateCh:
		require.Equal(c.t, state, s)
	case <-time.After(500 * time.Millisecond):
		c.t.Fatal("expect state change timeout")
	}
	return c
}

func (c *fifoTestCtx) expectPacket(seq PacketSeq, code byte, data []byte) *fifoTestCtx {
	select {
	case pkt := <-c.packetCh:
		require.Equal(c.t, seq, pkt.Seq)
		require.Equal(c.t, code, pkt.Code)
		if len(data) > 0 {
			require.Equal(c.t, data, pkt.Data)
		} else {
			require.Empty(c.t, pkt.Data)
		}
	case <-time.After(500 * time.Millisecond):
		c.t.Fatal("expect packet timeout")
	}
	return c
}

func (c *fifoTestCtx) noPacket() *fifoTestCtx {
	select {
	case pkt := <-c.packetCh:
		c.t.Fatalf("unexpected packet %v", pkt)
	case <-time.After(50 * time.Millisecond):
	}
	return c
}

func (c *fifoTestCtx) mustSend(code byte, data []byte) *fifoTestCtx {
	require.NoError(c.t, c.fifo.Send(&Packet{Code: code, Data: data}))
	return c
}

func frameOf(pkt ...byte) []byte {
	return cobs.AppendFrame(nil, pkt)
}

func TestFIFOReceive(t *testing.T) {
	tctx := newFIFOTestCtx(t).start()
	defer tctx.cancel()

	wire := append(frameOf(1, 0x02), frameOf(2, 0x82, 0x03)...)
	wire = append(wire, frameOf(3, 0x02, 1, 0, 3, 0, 0, 6)...)
	tctx.rw.inject(wire[:3], wire[3:5], wire[5:])
	tctx.expectPacket(1, 0x02, nil).
		expectPacket(2, 0x82, []byte{0x03}).
		expectPacket(3, 0x02, []byte{1, 0, 3, 0, 0, 6})
}

func TestFIFOSkipsBadFrames(t *testing.T) {
	tctx := newFIFOTestCtx(t).start()
	defer tctx.cancel()

	tctx.rw.inject(
		[]byte{0x00, 0x00},    // idle delimiters
		[]byte{0x05, 0x01, 0}, // truncated frame
		frameOf(1),            // too short for a packet
		frameOf(0xf5, 2),      // invalid seq
		frameOf(4, 0x02, 9),
	)
	tctx.expectPacket(4, 0x02, []byte{9}).noPacket()
}

func TestFIFOSend(t *testing.T) {
	tctx := newFIFOTestCtx(t)
	require.Equal(t, ErrNotReady, tctx.fifo.Send(&Packet{Code: 2}))

	tctx.start()
	defer tctx.cancel()
	tctx.mustSend(0x02, nil).
		mustSend(0x82, []byte{0x03}).
		mustSend(0x02, []byte{1, 0, 3})
	tctx.rw.expectWrite(t, []byte{0x03, 0x01, 0x02, 0x00})
	tctx.rw.expectWrite(t, []byte{0x04, 0x02, 0x82, 0x03, 0x00})
	tctx.rw.expectWrite(t, []byte{0x04, 0x03, 0x02, 0x01, 0x02, 0x03, 0x00})
	require.Equal(t, LinkUp, tctx.fifo.State())
}

func TestFIFOStateWhileSendBlocked(t *testing.T) {
	tctx := newFIFOTestCtx(t)
	// writes block until the test reads them.
	tctx.rw.writeCh = make(chan []byte)
	tctx.start()
	defer tctx.cancel()

	sendCh := make(chan error, 1)
	go func() { sendCh <- tctx.fifo.Send(&Packet{Code: 2}) }()
	time.Sleep(20 * time.Millisecond)

	stateCh := make(chan LinkState, 1)
	go func() { stateCh <- tctx.fifo.State() }()
	select {
	case state := <-stateCh:
		require.Equal(t, LinkUp, state)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("State blocked by a pending write")
	}

	tctx.rw.expectWrite(t, frameOf(1, 2))
	require.NoError(t, <-sendCh)
}

func TestFIFOStopsOnLinkClose(t *testing.T) {
	tctx := newFIFOTestCtx(t).start()
	tctx.rw.inject(frameOf(1, 0x02)[:2])
	close(tctx.rw.readCh)
	select {
	case err := <-tctx.errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("FIFO not stopped")
	}
	tctx.expectState(LinkDown).noPacket()
	require.Equal(t, ErrNotReady, tctx.fifo.Send(&Packet{Code: 2}))
}
