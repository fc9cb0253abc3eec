package cobs

import "io"

// DefaultReadSize is the default size of chunks read by Reader.
const DefaultReadSize = 512

// Reader reads decoded frames from an io.Reader.
type Reader struct {
	// Decoder exposes the decoder to set the MalformedPolicy and ErrorHandler.
	// Its Handler is owned by the Reader.
	Decoder StreamDecoder

	r      io.Reader
	buf    []byte
	chunk  []byte
	frames [][]byte
	err    error
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, DefaultReadSize)
}

// NewReaderSize creates a Reader reading chunks of at most size bytes.
func NewReaderSize(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultReadSize
	}
	rd := &Reader{r: r, buf: make([]byte, size)}
	rd.Decoder.Handler = HandleFrameFunc(rd.queue)
	return rd
}

func (r *Reader) queue(frame []byte) {
	r.frames = append(r.frames, frame)
}

// ReadFrame returns the next decoded frame. At the end of the stream a
// partially received frame is discarded and io.EOF is returned.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		if len(r.frames) > 0 {
			frame := r.frames[0]
			r.frames[0] = nil
			r.frames = r.frames[1:]
			return frame, nil
		}
		if len(r.chunk) > 0 {
			n, err := r.Decoder.Write(r.chunk)
			r.chunk = r.chunk[n:]
			if err != nil {
				return nil, err
			}
			continue
		}
		if r.err != nil {
			r.Decoder.Reset()
			return nil, r.err
		}
		n, err := r.r.Read(r.buf)
		r.chunk, r.err = r.buf[:n], err
	}
}

// Writer writes frames to an io.Writer.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame encodes the payload and writes it with the delimiter
// using a single Write.
func (w *Writer) WriteFrame(payload []byte) error {
	w.buf = AppendFrame(w.buf[:0], payload)
	_, err := w.w.Write(w.buf)
	return err
}
