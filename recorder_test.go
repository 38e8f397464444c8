package jdeserialize

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingReaderCapturesDeliveredBytes(t *testing.T) {
	r := newRecordingReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}))

	// Bytes read before recording starts are not captured.
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
	assert.Empty(t, r.recorded())

	r.startRecording()
	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(2), b)

	p := make([]byte, 2)
	_, err = io.ReadFull(r, p)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, r.recorded())
}

func TestRecordingReaderStartClearsBuffer(t *testing.T) {
	r := newRecordingReader(bytes.NewReader([]byte{1, 2, 3}))
	r.startRecording()
	_, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, r.recorded())

	r.startRecording()
	assert.Empty(t, r.recorded())
	_, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, r.recorded())
}

func TestRecordingReaderSkipWhileRecording(t *testing.T) {
	r := newRecordingReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	r.startRecording()
	n, err := r.skip(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []byte{1, 2, 3}, r.recorded())
}

func TestRecordingReaderSkipPassive(t *testing.T) {
	r := newRecordingReader(bytes.NewReader([]byte{1, 2, 3, 4}))
	n, err := r.skip(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(3), b)

	_, err = r.skip(-1)
	assert.Error(t, err)
}

func TestRecordingReaderStopRecording(t *testing.T) {
	r := newRecordingReader(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, r.stopRecording())

	r.startRecording()
	_, err := r.ReadByte()
	require.NoError(t, err)
	require.NoError(t, r.stopRecording())
	assert.Empty(t, r.recorded())
	assert.Error(t, r.stopRecording())
}
