package cobs

import "fmt"

// FrameHandler is called with every decoded frame.
// The frame is owned by the handler, the decoder never touches it again.
type FrameHandler interface {
	HandleFrame([]byte)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func([]byte)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(frame []byte) {
	f(frame)
}

// ErrorHandler is called when a malformed frame is dropped or
// partially emitted.
type ErrorHandler interface {
	HandleFrameError(*FrameError)
}

// HandleFrameErrorFunc is func type of ErrorHandler.
type HandleFrameErrorFunc func(*FrameError)

// HandleFrameError implements ErrorHandler.
func (f HandleFrameErrorFunc) HandleFrameError(err *FrameError) {
	f(err)
}

// MalformedPolicy decides what StreamDecoder does with a malformed frame.
type MalformedPolicy int

const (
	// DiscardMalformed drops the frame and resynchronizes on the delimiter.
	DiscardMalformed MalformedPolicy = iota
	// EmitPartial hands the partially decoded frame to the FrameHandler.
	EmitPartial
	// StopOnMalformed makes Write return the error right after the
	// delimiter which exposed it.
	StopOnMalformed
)

// String implements fmt.Stringer.
func (p MalformedPolicy) String() string {
	switch p {
	case DiscardMalformed:
		return "discard"
	case EmitPartial:
		return "partial"
	case StopOnMalformed:
		return "stop"
	}
	return "unknown"
}

// ParseMalformedPolicy parses the name of a policy.
func ParseMalformedPolicy(name string) (MalformedPolicy, error) {
	for _, p := range []MalformedPolicy{DiscardMalformed, EmitPartial, StopOnMalformed} {
		if p.String() == name {
			return p, nil
		}
	}
	return DiscardMalformed, fmt.Errorf("unknown malformed policy %q", name)
}

// StreamDecoder decodes frames from a byte stream delivered in chunks
// of any size. The zero value is ready to use.
// It must not be fed by more than one goroutine at a time.
type StreamDecoder struct {
	Handler      FrameHandler
	ErrorHandler ErrorHandler
	Policy       MalformedPolicy
	// EmitEmpty emits an empty frame for a delimiter with nothing before
	// it (idle or repeated delimiters), so every delimiter yields one
	// frame. By default such delimiters are skipped.
	EmitEmpty bool

	frame []byte
	// remain is the count of data bytes left in the current block.
	remain byte
	// zero is set when the current block implies a zero byte before
	// the next block, i.e. its overhead byte is not 0xff.
	zero bool
	// started is set once any byte of the current frame is received.
	started bool
}

// NewStreamDecoder creates a StreamDecoder emitting frames to h.
func NewStreamDecoder(h FrameHandler) *StreamDecoder {
	return &StreamDecoder{Handler: h}
}

// Reset discards the frame in flight.
func (d *StreamDecoder) Reset() {
	d.frame, d.remain, d.zero, d.started = nil, 0, false, false
}

// Pending indicates a frame is partially received.
func (d *StreamDecoder) Pending() bool {
	return d.started
}

// Write implements io.Writer. It consumes a chunk and emits every frame
// completed by a delimiter in the chunk. An error is only returned with
// StopOnMalformed, in which case n counts the bytes consumed including the
// delimiter, and the remaining p[n:] can be fed again.
func (d *StreamDecoder) Write(p []byte) (int, error) {
	for i, b := range p {
		if b == Delimiter {
			if err := d.endFrame(i); err != nil {
				return i + 1, err
			}
			continue
		}
		d.started = true
		if d.remain != 0 {
			d.frame = append(d.frame, b)
			d.remain--
			continue
		}
		if d.zero {
			d.frame = append(d.frame, 0)
		}
		d.remain, d.zero = b-1, b != overheadMax
	}
	return len(p), nil
}

func (d *StreamDecoder) endFrame(offset int) error {
	if !d.started {
		if d.EmitEmpty {
			d.emit([]byte{})
		}
		return nil
	}
	frame, truncated := d.frame, d.remain != 0
	d.Reset()
	if frame == nil {
		frame = []byte{}
	}
	if !truncated {
		d.emit(frame)
		return nil
	}
	ferr := &FrameError{Offset: offset, Err: ErrTruncatedFrame}
	switch d.Policy {
	case StopOnMalformed:
		return ferr
	case EmitPartial:
		d.emit(frame)
	}
	if h := d.ErrorHandler; h != nil {
		h.HandleFrameError(ferr)
	}
	return nil
}

func (d *StreamDecoder) emit(frame []byte) {
	if h := d.Handler; h != nil {
		h.HandleFrame(frame)
	}
}
