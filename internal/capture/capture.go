// Package capture implements the optional per-section audio/video capture
// lifecycle. The device and the upload sink sit behind capability interfaces
// so the engine stays testable without real media hardware; every failure
// here is non-fatal — the exam proceeds without capture evidence.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MediaCapture is the capture device capability. Start begins buffering;
// Stop finalizes the buffer into a single blob.
type MediaCapture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
}

// Blob is one packaged capture upload.
type Blob struct {
	TestID     uuid.UUID `json:"test_id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	UserTestID uuid.UUID `json:"user_test_id"`
	// Data is the brotli-compressed recording.
	Data       []byte    `json:"data"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Sink receives packaged blobs. Uploads are fire-and-forget relative to exam
// progression; a failing sink must not block the session.
type Sink interface {
	UploadCapture(ctx context.Context, blob Blob) error
}

// Adapter drives the capture lifecycle for one session: start when a
// section's questions finish loading, stop-and-flush on expiry or manual
// submit, before the answer submission call.
type Adapter struct {
	mu sync.Mutex

	testID     uuid.UUID
	userTestID uuid.UUID
	media      MediaCapture
	sink       Sink
	log        zerolog.Logger

	running bool
	subject uuid.UUID
}

// NewAdapter creates an adapter for one session.
func NewAdapter(testID, userTestID uuid.UUID, media MediaCapture, sink Sink, log zerolog.Logger) *Adapter {
	return &Adapter{
		testID:     testID,
		userTestID: userTestID,
		media:      media,
		sink:       sink,
		log:        log.With().Str("component", "capture").Str("user_test_id", userTestID.String()).Logger(),
	}
}

// StartSection acquires the device and begins buffering for subjectID.
// Device acquisition failure is logged and swallowed.
func (a *Adapter) StartSection(ctx context.Context, subjectID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	if err := a.media.Start(ctx); err != nil {
		a.log.Warn().Err(err).Str("subject_id", subjectID.String()).Msg("Capture device unavailable, proceeding without capture")
		return
	}
	a.running = true
	a.subject = subjectID
}

// StopSection finalizes the buffer, packages it compressed, and hands it to
// the sink. Upload failure is logged only.
func (a *Adapter) StopSection(ctx context.Context) {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	subject := a.subject
	a.mu.Unlock()

	raw, err := a.media.Stop(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Capture stop failed")
		return
	}
	if len(raw) == 0 {
		return
	}

	data, err := compress(raw)
	if err != nil {
		a.log.Warn().Err(err).Msg("Capture compression failed")
		return
	}

	blob := Blob{
		TestID:     a.testID,
		SubjectID:  subject,
		UserTestID: a.userTestID,
		Data:       data,
		RecordedAt: time.Now(),
	}
	if err := a.sink.UploadCapture(ctx, blob); err != nil {
		a.log.Warn().Err(err).Int("bytes", len(data)).Msg("Capture upload failed")
		return
	}
	a.log.Info().
		Str("subject_id", subject.String()).
		Int("raw_bytes", len(raw)).
		Int("packed_bytes", len(data)).
		Msg("Capture flushed")
}

// Running reports whether a section capture is buffering.
func (a *Adapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress unpacks a stored capture blob. Used by the storage worker and
// by tests.
func Decompress(data []byte) ([]byte, error) {
	var out bytes.Buffer
	r := brotli.NewReader(bytes.NewReader(data))
	if _, err := out.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("brotli read: %w", err)
	}
	return out.Bytes(), nil
}
