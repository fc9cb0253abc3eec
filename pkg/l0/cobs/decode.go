package cobs

// Decode decodes a complete frame (without delimiter).
// It never fails: on a malformed block it stops and returns whatever was
// decoded so far. Use DecodeFrame when the frame must be validated.
func Decode(frame []byte) []byte {
	out, _ := decodeFrame(frame)
	return out
}

// DecodeFrame decodes a complete frame (without delimiter) and reports
// ErrMalformedBlock or ErrTruncatedFrame as a *FrameError.
func DecodeFrame(frame []byte) ([]byte, error) {
	return decodeFrame(frame)
}

func decodeFrame(frame []byte) ([]byte, error) {
	out := make([]byte, 0, len(frame))
	overhead, remain := overheadMax, byte(0)
	for i, b := range frame {
		if remain != 0 {
			out = append(out, b)
			remain--
			continue
		}
		if overhead != overheadMax {
			out = append(out, 0)
		}
		if b == 0 {
			// the zero implied by the previous block is kept.
			return out, &FrameError{Offset: i, Err: ErrMalformedBlock}
		}
		overhead, remain = b, b-1
	}
	if remain != 0 {
		return out, &FrameError{Offset: len(frame), Err: ErrTruncatedFrame}
	}
	return out, nil
}
