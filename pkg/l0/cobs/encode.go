package cobs

const (
	// Delimiter separates encoded frames on the wire.
	Delimiter byte = 0x00
	// MaxBlockData is the maximum number of data bytes in a block.
	MaxBlockData = 254

	overheadMax byte = 0xff
)

// MaxEncodedLen returns the maximum length of an encoded payload of n bytes,
// excluding the delimiter.
func MaxEncodedLen(n int) int {
	return n + n/MaxBlockData + 1
}

// Encode returns the encoded frame of payload. The delimiter is not included.
func Encode(payload []byte) []byte {
	return AppendEncode(make([]byte, 0, MaxEncodedLen(len(payload))), payload)
}

// AppendFrame appends the encoded payload followed by the delimiter to dst.
func AppendFrame(dst, payload []byte) []byte {
	return append(AppendEncode(dst, payload), Delimiter)
}

// AppendEncode appends the encoded payload to dst and returns the
// extended buffer.
func AppendEncode(dst, payload []byte) []byte {
	// pos is where the overhead byte of the current block goes.
	pos, overhead := len(dst), byte(1)
	dst = append(dst, 0)
	for i := 0; i < len(payload); {
		if b := payload[i]; b != 0 {
			dst = append(dst, b)
			overhead++
			i++
			if overhead != overheadMax {
				continue
			}
			// Saturated: the next block starts without an implied zero.
		} else {
			i++
		}
		dst[pos] = overhead
		pos, overhead = len(dst), 1
		dst = append(dst, 0)
	}
	dst[pos] = overhead
	return dst
}
