package channel

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// encode turns a caller-supplied payload plus its declared mode into the
// bytes actually written to the device. See spec §6 Send Encoding.
func encode(data string, mode SendMode) ([]byte, error) {
	switch mode {
	case "", ModeASCII:
		return append([]byte(data), '\n'), nil
	case ModeHex:
		return encodeHex(data)
	case ModeBinary:
		return encodeBinary(data)
	default:
		return nil, fmt.Errorf("unknown send mode %q", mode)
	}
}

func encodeHex(data string) ([]byte, error) {
	stripped := stripWhitespace(data)
	b, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("malformed hex payload: %w", err)
	}
	return b, nil
}

// encodeBinary parses a bit string ("0"/"1" characters) and packs it
// MSB-first into bytes. Length need not be a multiple of 8; trailing bits
// pad with zero.
func encodeBinary(data string) ([]byte, error) {
	stripped := stripWhitespace(data)
	if stripped == "" {
		return nil, nil
	}

	numBytes := (len(stripped) + 7) / 8
	out := make([]byte, numBytes)
	for i, r := range stripped {
		var bit byte
		switch r {
		case '0':
			bit = 0
		case '1':
			bit = 1
		default:
			return nil, fmt.Errorf("malformed binary payload: unexpected character %q", r)
		}
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		out[byteIdx] |= bit << uint(bitIdx)
	}
	return out, nil
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
