package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/capture"
	"github.com/velora-edu/examspace-backend/internal/config"
)

// CaptureService stores packaged proctoring blobs on disk and enqueues their
// metadata for persistence. It is the capture.Sink of every live session.
type CaptureService struct {
	cfg *config.Config
	rdb *redis.Client
	log zerolog.Logger
}

// NewCaptureService creates a new CaptureService.
func NewCaptureService(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *CaptureService {
	return &CaptureService{
		cfg: cfg,
		rdb: rdb,
		log: log.With().Str("component", "capture_service").Logger(),
	}
}

// CaptureUploadPayload is the queue message consumed by the capture worker.
type CaptureUploadPayload struct {
	ID         string    `json:"id"`
	TestID     string    `json:"test_id"`
	SubjectID  string    `json:"subject_id"`
	UserTestID string    `json:"user_test_id"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	RecordedAt time.Time `json:"recorded_at"`
}

// UploadCapture writes a compressed blob under the capture directory and
// enqueues its metadata. The blob arrives already brotli-compressed.
func (s *CaptureService) UploadCapture(ctx context.Context, blob capture.Blob) error {
	if int64(len(blob.Data)) > s.cfg.MaxCaptureBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)",
			capture.ErrCaptureTooLarge, len(blob.Data), s.cfg.MaxCaptureBytes)
	}

	dir := filepath.Join(s.cfg.CaptureDir, blob.TestID.String(), blob.UserTestID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}

	id := uuid.New()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.br", blob.SubjectID, id))
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("write capture blob: %w", err)
	}

	payload, err := json.Marshal(CaptureUploadPayload{
		ID:         id.String(),
		TestID:     blob.TestID.String(),
		SubjectID:  blob.SubjectID.String(),
		UserTestID: blob.UserTestID.String(),
		Path:       path,
		SizeBytes:  int64(len(blob.Data)),
		RecordedAt: blob.RecordedAt,
	})
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.CaptureUploadQueue, payload).Err(); err != nil {
		// The blob is on disk; losing the metadata row is recoverable.
		s.log.Error().Err(err).Str("path", path).Msg("Capture metadata enqueue failed")
	}

	s.log.Info().
		Str("user_test_id", blob.UserTestID.String()).
		Str("subject_id", blob.SubjectID.String()).
		Int("bytes", len(blob.Data)).
		Msg("Capture blob stored")
	return nil
}
