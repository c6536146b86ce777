// Package capture wraps the external media tooling (ffmpeg/ffprobe) behind an
// injectable interface so the recording pipeline can be tested without it.
package capture

import (
	"context"
	"time"
)

// MediaCapture performs the blocking media operations of a recording task.
// Implementations report plain success/failure; partial output handling is
// the caller's responsibility.
type MediaCapture interface {
	// Record pulls the stream into outPath for at most maxDuration.
	Record(ctx context.Context, streamURL, outPath string, maxDuration time.Duration) error

	// Thumbnail extracts a single poster frame from a recorded video.
	Thumbnail(ctx context.Context, videoPath, thumbPath string) error

	// Watermark overlays image onto the top-right corner of the input video.
	Watermark(ctx context.Context, inPath, outPath, imagePath string, maxWidth, margin int) error

	// Duration returns the measured duration of a media file in seconds.
	// A value of 0 with a nil error means the duration could not be determined.
	Duration(ctx context.Context, path string) (float64, error)
}
