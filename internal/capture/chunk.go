package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
)

// ErrNotRecording is returned when chunks arrive outside a recording window.
var ErrNotRecording = errors.New("capture is not recording")

// ErrCaptureTooLarge is returned when a recording exceeds its byte budget.
var ErrCaptureTooLarge = errors.New("capture exceeds size limit")

// ChunkBuffer is the server-side MediaCapture: the exam page records locally
// and streams chunks up, and the buffer accumulates them between Start and
// Stop. Chunks arriving outside a recording window are rejected.
type ChunkBuffer struct {
	mu        sync.Mutex
	recording bool
	buf       bytes.Buffer
	maxBytes  int64
}

// NewChunkBuffer creates a buffer capped at maxBytes per recording.
// maxBytes <= 0 means no cap.
func NewChunkBuffer(maxBytes int64) *ChunkBuffer {
	return &ChunkBuffer{maxBytes: maxBytes}
}

// Start opens a recording window, discarding any previous buffer.
func (b *ChunkBuffer) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.recording = true
	return nil
}

// Append adds one uploaded chunk to the current recording.
func (b *ChunkBuffer) Append(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return ErrNotRecording
	}
	if b.maxBytes > 0 && int64(b.buf.Len())+int64(len(chunk)) > b.maxBytes {
		return ErrCaptureTooLarge
	}
	_, err := b.buf.Write(chunk)
	return err
}

// Stop closes the recording window and returns the accumulated blob.
func (b *ChunkBuffer) Stop(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.recording {
		return nil, ErrNotRecording
	}
	b.recording = false
	data := make([]byte, b.buf.Len())
	copy(data, b.buf.Bytes())
	b.buf.Reset()
	return data, nil
}

// Recording reports whether a recording window is open.
func (b *ChunkBuffer) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recording
}
