package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcam/rec-engine/internal/retention"
	"github.com/xcam/rec-engine/internal/xcam"
)

// task is the ephemeral execution context for one broadcaster. It is created
// at dispatch and destroyed when the task terminates; nothing here is shared
// across tasks.
type task struct {
	id        string
	username  string
	stage     Stage
	tempDir   string
	videoPath string
	thumbPath string
	logger    *zap.Logger
}

// runTask executes the full pipeline for one claimed broadcast. Temp files
// are removed on every exit path, including panics; the claim itself is
// released by Dispatch.
func (c *Coordinator) runTask(ctx context.Context, bc xcam.Broadcast) {
	t := &task{
		id:       uuid.New().String(),
		username: bc.Username,
		stage:    StageClaimed,
	}
	t.logger = c.logger.With(
		zap.String("username", t.username),
		zap.String("task_id", t.id),
	)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("task panicked",
				zap.Any("panic", r),
				zap.String("stage", string(t.stage)),
				zap.ByteString("stack", debug.Stack()))
			if c.metrics != nil {
				c.metrics.IncTasksFailed(string(t.stage))
			}
		}
		t.cleanup()
		t.stage = StageReleased
	}()

	t.logger.Info("task started")
	c.pipeline(ctx, t, bc)
}

// pipeline runs the sequential stages. Each stage's success gates entry to
// the next; a failed stage returns immediately and the deferred cleanup in
// runTask handles the rest.
func (c *Coordinator) pipeline(ctx context.Context, t *task, bc xcam.Broadcast) {
	// Resolve.
	t.stage = StageResolving
	streamURL, err := c.resolver.Resolve(ctx, bc)
	if err != nil {
		t.logger.Warn("no usable stream url", zap.Error(err))
		c.failed(t)
		return
	}

	tempBase := c.opts.TempDir
	if tempBase == "" {
		tempBase = os.TempDir()
	}
	t.tempDir, err = os.MkdirTemp(tempBase, "rec-"+t.username+"-")
	if err != nil {
		t.logger.Error("create temp dir", zap.Error(err))
		c.failed(t)
		return
	}
	t.videoPath = filepath.Join(t.tempDir, t.username+".mp4")
	t.thumbPath = filepath.Join(t.tempDir, t.username+".jpg")

	// Record.
	t.stage = StageRecording
	if err := c.media.Record(ctx, streamURL, t.videoPath, c.opts.MaxDuration); err != nil {
		t.logger.Error("recording failed", zap.Error(err))
		c.failed(t)
		return
	}

	// Thumbnail failure is not fatal; the record simply has no poster.
	hasThumb := true
	if err := c.media.Thumbnail(ctx, t.videoPath, t.thumbPath); err != nil {
		t.logger.Warn("thumbnail capture failed", zap.Error(err))
		hasThumb = false
	}

	// Validate.
	t.stage = StageValidating
	measured, err := c.media.Duration(ctx, t.videoPath)
	if err != nil {
		t.logger.Error("duration probe failed", zap.Error(err))
		measured = 0
	}
	switch c.policy.Evaluate(measured) {
	case retention.Discard:
		t.stage = StageDiscarded
		t.logger.Info("recording below minimum duration, discarding",
			zap.Float64("measured_sec", measured),
			zap.Float64("min_sec", c.policy.MinDuration))
		os.Remove(t.videoPath)
		os.Remove(t.thumbPath)
		if c.metrics != nil {
			c.metrics.IncTasksDiscarded()
		}
		return
	case retention.Indeterminate:
		// The file may be corrupt or it may be fine. Keep it out of harm's
		// way instead of deleting possibly-good data.
		t.logger.Error("recording duration indeterminate, preserving files",
			zap.String("video", t.videoPath))
		if err := t.preserve(c.opts.KeepDir); err != nil {
			t.logger.Error("preserving files failed", zap.Error(err))
		}
		if c.metrics != nil {
			c.metrics.IncTasksFailed(string(StageValidating))
		}
		return
	}

	// Watermark (optional).
	uploadPath := t.videoPath
	if c.opts.Watermark.ImagePath != "" {
		t.stage = StageWatermarking
		marked := filepath.Join(t.tempDir, t.username+".wm.mp4")
		if err := c.media.Watermark(ctx, t.videoPath, marked,
			c.opts.Watermark.ImagePath, c.opts.Watermark.MaxWidth, c.opts.Watermark.Margin); err != nil {
			t.logger.Warn("watermark failed, uploading original", zap.Error(err))
		} else {
			uploadPath = marked
		}
	}

	// Upload. Poster first; a failed poster upload degrades, a failed video
	// upload aborts.
	t.stage = StageUploading
	posterURL := ""
	if hasThumb {
		if res, err := c.store.Upload(ctx, t.thumbPath); err != nil {
			t.logger.Warn("poster upload failed", zap.Error(err))
		} else {
			posterURL = res.URL
		}
	}
	res, err := c.store.Upload(ctx, uploadPath)
	if err != nil {
		t.logger.Error("video upload failed, recording lost", zap.Error(err))
		c.failed(t)
		return
	}

	// Persist. A failed ledger write does not roll back the upload.
	t.stage = StagePersisting
	seconds := int(measured + 0.5)
	if err := c.ledger.Append(t.username, res.ID, res.URL, posterURL, seconds); err != nil {
		t.logger.Error("ledger append failed", zap.Error(err))
	}

	t.logger.Info("task completed",
		zap.String("video_id", res.ID),
		zap.String("url", res.URL),
		zap.Int("duration_sec", seconds))
	if c.metrics != nil {
		c.metrics.IncTasksCompleted()
	}
}

func (c *Coordinator) failed(t *task) {
	if c.metrics != nil {
		c.metrics.IncTasksFailed(string(t.stage))
	}
}

// preserve moves the task's files into keepDir so they survive temp cleanup.
func (t *task) preserve(keepDir string) error {
	if keepDir == "" {
		return fmt.Errorf("no keep directory configured")
	}
	if err := os.MkdirAll(keepDir, 0o755); err != nil {
		return fmt.Errorf("create keep dir: %w", err)
	}
	prefix := fmt.Sprintf("%s-%s", t.username, t.id)
	if err := moveFile(t.videoPath, filepath.Join(keepDir, prefix+".mp4")); err != nil {
		return err
	}
	if _, err := os.Stat(t.thumbPath); err == nil {
		if err := moveFile(t.thumbPath, filepath.Join(keepDir, prefix+".jpg")); err != nil {
			return err
		}
	}
	return nil
}

// cleanup removes the task's temp directory. It is safe to call when no
// directory was created and after files were already deleted or moved.
func (t *task) cleanup() {
	if t.tempDir == "" {
		return
	}
	if err := os.RemoveAll(t.tempDir); err != nil {
		t.logger.Error("temp cleanup failed", zap.String("dir", t.tempDir), zap.Error(err))
	}
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
