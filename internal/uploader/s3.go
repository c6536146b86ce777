package uploader

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcam/rec-engine/pkg/storage"
)

// S3Store is the BlobStore backend that archives recordings to S3 instead of
// the Hydrax service. IDs are generated locally since S3 does not assign one.
type S3Store struct {
	s3     *storage.S3
	logger *zap.Logger
}

// NewS3Store wraps an S3 client as a BlobStore.
func NewS3Store(s3 *storage.S3, logger *zap.Logger) *S3Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Store{s3: s3, logger: logger}
}

// Upload streams the file to the recordings bucket. The filename stem is used
// as the username prefix of the object key, matching the engine's
// <username>.mp4 temp file naming.
func (s *S3Store) Upload(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload file: %w", err)
	}

	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	username := strings.TrimSuffix(base, ext)
	username = strings.TrimSuffix(username, ".wm")
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New().String()
	key := storage.RecordingKey(username, id, ext)
	url, err := s.s3.Upload(ctx, s.s3.RecordingsBucket(), key, contentType, f, info.Size())
	if err != nil {
		return nil, err
	}

	s.logger.Info("recording archived to s3", zap.String("key", key))
	return &Result{ID: id, URL: url}, nil
}
