package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	startErr error
	stopErr  error
	blob     []byte
	started  int
	stopped  int
}

func (m *fakeMedia) Start(ctx context.Context) error {
	m.started++
	return m.startErr
}

func (m *fakeMedia) Stop(ctx context.Context) ([]byte, error) {
	m.stopped++
	return m.blob, m.stopErr
}

type fakeSink struct {
	blobs []Blob
	err   error
}

func (s *fakeSink) UploadCapture(ctx context.Context, blob Blob) error {
	if s.err != nil {
		return s.err
	}
	s.blobs = append(s.blobs, blob)
	return nil
}

func TestAdapterPackagesAndUploads(t *testing.T) {
	recording := bytes.Repeat([]byte("frame-data "), 200)
	media := &fakeMedia{blob: recording}
	sink := &fakeSink{}
	subject := uuid.New()
	a := NewAdapter(uuid.New(), uuid.New(), media, sink, zerolog.Nop())

	a.StartSection(context.Background(), subject)
	assert.True(t, a.Running())

	a.StopSection(context.Background())
	assert.False(t, a.Running())

	require.Len(t, sink.blobs, 1)
	blob := sink.blobs[0]
	assert.Equal(t, subject, blob.SubjectID)
	assert.Less(t, len(blob.Data), len(recording))

	unpacked, err := Decompress(blob.Data)
	require.NoError(t, err)
	assert.Equal(t, recording, unpacked)
}

func TestAdapterDeviceUnavailableIsNonFatal(t *testing.T) {
	media := &fakeMedia{startErr: errors.New("no device")}
	sink := &fakeSink{}
	a := NewAdapter(uuid.New(), uuid.New(), media, sink, zerolog.Nop())

	a.StartSection(context.Background(), uuid.New())
	assert.False(t, a.Running())

	// Stop with nothing running is a no-op.
	a.StopSection(context.Background())
	assert.Equal(t, 0, media.stopped)
	assert.Empty(t, sink.blobs)
}

func TestAdapterUploadFailureIsNonFatal(t *testing.T) {
	media := &fakeMedia{blob: []byte("recording")}
	sink := &fakeSink{err: errors.New("storage down")}
	a := NewAdapter(uuid.New(), uuid.New(), media, sink, zerolog.Nop())

	a.StartSection(context.Background(), uuid.New())
	a.StopSection(context.Background())
	assert.False(t, a.Running())
}

func TestAdapterDoubleStartKeepsFirstSection(t *testing.T) {
	media := &fakeMedia{blob: []byte("recording")}
	sink := &fakeSink{}
	first := uuid.New()
	a := NewAdapter(uuid.New(), uuid.New(), media, sink, zerolog.Nop())

	a.StartSection(context.Background(), first)
	a.StartSection(context.Background(), uuid.New())
	assert.Equal(t, 1, media.started)

	a.StopSection(context.Background())
	require.Len(t, sink.blobs, 1)
	assert.Equal(t, first, sink.blobs[0].SubjectID)
}

func TestChunkBufferWindow(t *testing.T) {
	b := NewChunkBuffer(0)

	err := b.Append([]byte("early"))
	assert.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, b.Start(context.Background()))
	assert.True(t, b.Recording())
	require.NoError(t, b.Append([]byte("one ")))
	require.NoError(t, b.Append([]byte("two")))

	data, err := b.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("one two"), data)
	assert.False(t, b.Recording())

	_, err = b.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestChunkBufferSizeCap(t *testing.T) {
	b := NewChunkBuffer(8)
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Append([]byte("12345678")))

	err := b.Append([]byte("9"))
	assert.ErrorIs(t, err, ErrCaptureTooLarge)

	// A new window starts from an empty buffer.
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Append([]byte("fresh")))
	data, err := b.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)
}
