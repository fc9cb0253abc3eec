package sh

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHex parses bytes from arguments. Each argument may hold any
// number of bytes, optionally separated by spaces, commas or colons,
// with or without a 0x prefix.
func ParseHex(args []string) ([]byte, error) {
	var out []byte
	for _, arg := range args {
		fields := strings.FieldsFunc(arg, func(r rune) bool {
			return r == ' ' || r == ',' || r == ':'
		})
		for _, field := range fields {
			field = strings.TrimPrefix(strings.ToLower(field), "0x")
			if len(field)%2 != 0 {
				field = "0" + field
			}
			b, err := hex.DecodeString(field)
			if err != nil {
				return nil, fmt.Errorf("invalid hex %q: %w", field, err)
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// FormatHex formats bytes as space separated hex pairs.
func FormatHex(data []byte) string {
	var sb strings.Builder
	for n, b := range data {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
