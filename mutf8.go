package jdeserialize

import (
	"fmt"
	"io"
	"unicode/utf16"
)

// decodeModifiedUTF8 decodes Java's modified UTF-8 into a string. The
// accepted forms are the three bands used by the JVM: a single byte
// 0x01..0x7F, a two-byte sequence for U+0080..U+07FF and the encoded null
// (C0 80), and a three-byte sequence for U+0800..U+FFFF. Surrogate pairs are
// carried as individual code units and combined after assembly; lone
// surrogates become the replacement character.
func decodeModifiedUTF8(data []byte) (string, error) {
	units := make([]uint16, 0, len(data))
	for i := 0; i < len(data); {
		ba := data[i]
		switch {
		case ba&0x80 == 0:
			// U+0001..U+007F
			if ba == 0 {
				return "", validityErrorf("improperly-encoded null in modified UTF-8 string")
			}
			units = append(units, uint16(ba))
			i++
		case ba&0xe0 == 0xc0:
			// U+0080..U+07FF, or the two-byte null
			if i+1 >= len(data) {
				return "", fmt.Errorf("modified UTF-8 string: %w", io.ErrUnexpectedEOF)
			}
			bb := data[i+1]
			if bb&0xc0 != 0x80 {
				return "", validityErrorf("byte b in 0080-07FF seq doesn't begin with correct prefix: %s", hx(int64(bb)))
			}
			units = append(units, uint16(ba&0x1f)<<6|uint16(bb&0x3f))
			i += 2
		case ba&0xf0 == 0xe0:
			// U+0800..U+FFFF
			if i+2 >= len(data) {
				return "", fmt.Errorf("modified UTF-8 string: %w", io.ErrUnexpectedEOF)
			}
			bb, bc := data[i+1], data[i+2]
			if bb&0xc0 != 0x80 {
				return "", validityErrorf("byte b in 0800-FFFF seq doesn't begin with correct prefix: %s", hx(int64(bb)))
			}
			if bc&0xc0 != 0x80 {
				return "", validityErrorf("byte c in 0800-FFFF seq doesn't begin with correct prefix: %s", hx(int64(bc)))
			}
			units = append(units, uint16(ba&0x0f)<<12|uint16(bb&0x3f)<<6|uint16(bc&0x3f))
			i += 3
		default:
			return "", validityErrorf("invalid byte in modified UTF-8 string: %s", hx(int64(ba)))
		}
	}
	return string(utf16.Decode(units)), nil
}
