package cobs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBlock indicates an overhead byte of 0x00 inside a frame.
	ErrMalformedBlock = errors.New("malformed block")
	// ErrTruncatedFrame indicates the frame ends before the last block
	// has all the data bytes announced by its overhead byte.
	ErrTruncatedFrame = errors.New("truncated frame")
)

// FrameError reports where decoding of a frame failed.
type FrameError struct {
	// Offset is the position of the offending byte, relative to the
	// frame for DecodeFrame and to the input chunk for StreamDecoder.
	Offset int
	Err    error
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("cobs: %v at offset %d", e.Err, e.Offset)
}

// Unwrap returns the underlying sentinel error.
func (e *FrameError) Unwrap() error {
	return e.Err
}
