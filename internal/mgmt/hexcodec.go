package mgmt

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// MaxHexChars is the size of the scratch buffer a value's text form must
// fit in. MaxValueBytes follows from it.
const (
	MaxHexChars   = 512
	MaxValueBytes = MaxHexChars / 2
)

// EncodeHex renders b as lowercase hex, two characters per byte.
func EncodeHex(b []byte) (string, error) {
	if len(b) > MaxValueBytes {
		return "", ErrValueTooLarge
	}
	return hex.EncodeToString(b), nil
}

// DecodeHex parses s into exactly n bytes. Upper-case digits are accepted.
func DecodeHex(s string, n int) ([]byte, error) {
	if n > MaxValueBytes {
		return nil, ErrValueTooLarge
	}
	if len(s) != 2*n {
		return nil, ErrLengthMismatch
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedHex
	}
	return b, nil
}

// Hex8 renders v as two hex digits.
func Hex8(v uint8) string { return padHex(uint64(v), 2) }

// Hex16 renders v as four hex digits.
func Hex16(v uint16) string { return padHex(uint64(v), 4) }

// Hex32 renders v as eight hex digits.
func Hex32(v uint32) string { return padHex(uint64(v), 8) }

// Hex64 renders v as sixteen hex digits.
func Hex64(v uint64) string { return padHex(v, 16) }

func padHex(v uint64, width int) string {
	s := strconv.FormatUint(v, 16)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
