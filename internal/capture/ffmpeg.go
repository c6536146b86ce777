package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// thumbnailOffset is the point in the video the poster frame is taken from.
const thumbnailOffset = "00:00:05"

// FFmpeg implements MediaCapture by shelling out to ffmpeg and ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

// NewFFmpeg creates an FFmpeg capture using the given binary paths.
// Empty paths default to "ffmpeg" and "ffprobe" on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string, logger *zap.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

// Record copies the stream to outPath for at most maxDuration. The duration
// bound is enforced by ffmpeg itself via -t; ctx cancellation kills the
// process early.
func (f *FFmpeg) Record(ctx context.Context, streamURL, outPath string, maxDuration time.Duration) error {
	secs := int(maxDuration.Seconds())
	args := []string{
		"-i", streamURL,
		"-t", strconv.Itoa(secs),
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-y", outPath,
	}
	f.logger.Info("recording stream",
		zap.String("url", streamURL),
		zap.String("out", outPath),
		zap.Int("max_duration_sec", secs))
	return f.run(ctx, f.ffmpegPath, args)
}

// Thumbnail extracts one frame at a fixed offset into thumbPath.
func (f *FFmpeg) Thumbnail(ctx context.Context, videoPath, thumbPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("video not found: %w", err)
	}
	args := []string{
		"-i", videoPath,
		"-ss", thumbnailOffset,
		"-vframes", "1",
		"-q:v", "2",
		"-y", thumbPath,
	}
	return f.run(ctx, f.ffmpegPath, args)
}

// Watermark overlays imagePath scaled to maxWidth in the top-right corner,
// margin pixels from the edges. Audio is copied untouched.
func (f *FFmpeg) Watermark(ctx context.Context, inPath, outPath, imagePath string, maxWidth, margin int) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("watermark image not found: %w", err)
	}
	filter := fmt.Sprintf("[1:v]scale=%d:-1[wm];[0:v][wm]overlay=W-w-%d:%d", maxWidth, margin, margin)
	args := []string{
		"-i", inPath,
		"-i", imagePath,
		"-filter_complex", filter,
		"-codec:a", "copy",
		"-y", outPath,
	}
	return f.run(ctx, f.ffmpegPath, args)
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration asks ffprobe for the container duration. Probe failures and
// unparseable output are reported as 0 seconds rather than an error, so the
// caller can apply its indeterminate-duration handling.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		f.logger.Warn("ffprobe failed", zap.String("path", path), zap.Error(err))
		return 0, nil
	}

	var probe probeOutput
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		f.logger.Warn("ffprobe output unparseable", zap.String("path", path), zap.Error(err))
		return 0, nil
	}
	if probe.Format.Duration == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		f.logger.Warn("ffprobe duration unparseable",
			zap.String("path", path),
			zap.String("duration", probe.Format.Duration))
		return 0, nil
	}
	return d, nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		return fmt.Errorf("%s: %w (%s)", bin, err, tail)
	}
	return nil
}
