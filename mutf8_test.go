package jdeserialize

import (
	"errors"
	"io"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeModifiedUTF8 is the test-side inverse of the decoder: each UTF-16
// code unit is written in the shortest band, with U+0000 as the two-byte
// form.
func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u == 0:
			out = append(out, 0xc0, 0x80)
		case u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xc0|byte(u>>6), 0x80|byte(u&0x3f))
		default:
			out = append(out, 0xe0|byte(u>>12), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))
		}
	}
	return out
}

func TestDecodeModifiedUTF8RoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"Hello",
		"héllo",
		"日本語",
		"mixed ß € ascii",
		"\x01\x7f",
		"null\x00inside",
		"\U0001f600", // surrogate pair on the wire
	} {
		got, err := decodeModifiedUTF8(encodeModifiedUTF8(s))
		require.NoError(t, err, "round-trip of %q", s)
		assert.Equal(t, s, got)
	}
}

func TestDecodeModifiedUTF8AllBands(t *testing.T) {
	// One code point per band boundary.
	for _, r := range []rune{0x01, 0x7f, 0x80, 0x7ff, 0x800, 0xfffd} {
		s := string(r)
		got, err := decodeModifiedUTF8(encodeModifiedUTF8(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDecodeModifiedUTF8TwoByteNull(t *testing.T) {
	got, err := decodeModifiedUTF8([]byte{0xc0, 0x80})
	require.NoError(t, err)
	assert.Equal(t, "\x00", got)
}

func TestDecodeModifiedUTF8RejectsBareNull(t *testing.T) {
	var ve *ValidityError
	_, err := decodeModifiedUTF8([]byte{'a', 0x00, 'b'})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))
}

func TestDecodeModifiedUTF8RejectsBadLead(t *testing.T) {
	var ve *ValidityError
	_, err := decodeModifiedUTF8([]byte{0xf0, 0x90, 0x80, 0x80})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))
}

func TestDecodeModifiedUTF8RejectsBadContinuation(t *testing.T) {
	var ve *ValidityError
	_, err := decodeModifiedUTF8([]byte{0xc3, 0x41})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))

	_, err = decodeModifiedUTF8([]byte{0xe3, 0x81, 0x41})
	require.Error(t, err)
	assert.True(t, errors.As(err, &ve))
}

func TestDecodeModifiedUTF8Truncated(t *testing.T) {
	for _, data := range [][]byte{
		{0xc3},
		{0xe3},
		{0xe3, 0x81},
	} {
		_, err := decodeModifiedUTF8(data)
		require.Error(t, err)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	}
}
