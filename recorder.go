package jdeserialize

import (
	"bytes"
	"errors"
	"io"
)

// recordingReader wraps an input stream and, after a call to
// startRecording, mirrors every byte actually delivered to consumers into an
// internal buffer. The buffer can be copied out with recorded; stopRecording
// leaves recording mode and discards it.
//
// The type is not safe for concurrent use; a decoder owns its reader for the
// duration of a run.
type recordingReader struct {
	r         io.Reader
	buf       bytes.Buffer
	recording bool
}

func newRecordingReader(r io.Reader) *recordingReader {
	return &recordingReader{r: r}
}

func (l *recordingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if l.recording && n > 0 {
		l.buf.Write(p[:n])
	}
	return n, err
}

func (l *recordingReader) ReadByte() (byte, error) {
	var one [1]byte
	if _, err := io.ReadFull(l, one[:]); err != nil {
		return 0, err
	}
	return one[0], nil
}

// skip discards n bytes. While recording, skipped bytes pass through Read so
// that they land in the buffer like any other delivered byte.
func (l *recordingReader) skip(n int64) (int64, error) {
	if n < 0 {
		return 0, errors.New("can't skip negative number of bytes")
	}
	if !l.recording {
		return io.CopyN(io.Discard, l.r, n)
	}
	var skipped int64
	scratch := make([]byte, 10240)
	for skipped < n {
		chunk := n - skipped
		if chunk > int64(len(scratch)) {
			chunk = int64(len(scratch))
		}
		rn, err := l.Read(scratch[:chunk])
		skipped += int64(rn)
		if err != nil {
			return skipped, err
		}
		if rn == 0 {
			break
		}
	}
	return skipped, nil
}

// startRecording enters recording mode, clearing any previous buffer.
func (l *recordingReader) startRecording() {
	l.recording = true
	l.buf.Reset()
}

// stopRecording leaves recording mode and discards the buffer. Calling it
// while recording is not active is a usage error.
func (l *recordingReader) stopRecording() error {
	if !l.recording {
		return errors.New("recording not active")
	}
	l.recording = false
	l.buf.Reset()
	return nil
}

// recorded returns a copy of the bytes recorded so far, or an empty slice
// when recording is not active. The recorder's state is unchanged.
func (l *recordingReader) recorded() []byte {
	if !l.recording {
		return []byte{}
	}
	out := make([]byte, l.buf.Len())
	copy(out, l.buf.Bytes())
	return out
}
