// Package engine contains the recording task lifecycle: the coordinator that
// claims broadcasters and bounds concurrency, and the per-broadcaster task
// pipeline (resolve, record, validate, watermark, upload, persist).
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xcam/rec-engine/internal/capture"
	"github.com/xcam/rec-engine/internal/retention"
	"github.com/xcam/rec-engine/internal/uploader"
	"github.com/xcam/rec-engine/internal/xcam"
	"github.com/xcam/rec-engine/pkg/metrics"
)

// StreamResolver resolves a broadcast to a playable stream URL.
type StreamResolver interface {
	Resolve(ctx context.Context, bc xcam.Broadcast) (string, error)
}

// MetadataLedger appends one record per successfully uploaded recording.
type MetadataLedger interface {
	Append(username, videoID, videoURL, posterURL string, durationSeconds int) error
}

// WatermarkOptions configures the optional overlay. An empty ImagePath
// disables watermarking.
type WatermarkOptions struct {
	ImagePath string
	MaxWidth  int
	Margin    int
}

// Options configures the coordinator and the tasks it runs.
type Options struct {
	Workers     int
	MinDuration time.Duration
	MaxDuration time.Duration
	TempDir     string // base for per-task temp dirs; empty = os.TempDir()
	KeepDir     string // destination for recordings with indeterminate duration
	Watermark   WatermarkOptions
}

// Coordinator owns the active claim set and the bounded worker pool.
//
// A username is claimed before its task is dispatched and released exactly
// once when the task terminates, whatever the outcome. The claim set is the
// only state shared between the poll loop and the workers.
type Coordinator struct {
	opts     Options
	resolver StreamResolver
	media    capture.MediaCapture
	store    uploader.BlobStore
	ledger   MetadataLedger
	policy   retention.Policy
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	active map[string]struct{}

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates a Coordinator. metrics may be nil.
func New(
	opts Options,
	resolver StreamResolver,
	media capture.MediaCapture,
	store uploader.BlobStore,
	ledger MetadataLedger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		opts:     opts,
		resolver: resolver,
		media:    media,
		store:    store,
		ledger:   ledger,
		policy:   retention.Policy{MinDuration: opts.MinDuration.Seconds()},
		metrics:  m,
		logger:   logger,
		active:   make(map[string]struct{}),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
	}
}

// TryClaim atomically claims a username for exclusive processing. It returns
// false when a task for that username is already in flight.
func (c *Coordinator) TryClaim(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[username]; ok {
		return false
	}
	c.active[username] = struct{}{}
	return true
}

// Release removes the username from the claim set. Releasing an unclaimed
// username is a no-op.
func (c *Coordinator) Release(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, username)
}

// Active returns a sorted snapshot of currently claimed usernames.
func (c *Coordinator) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.active))
	for u := range c.active {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// ActiveCount returns the number of claimed usernames.
func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Dispatch runs the recording task for a claimed broadcast. It must only be
// called after a successful TryClaim for bc.Username. The task waits for a
// free worker slot; submissions queue when all slots are busy. The claim is
// released on every exit path, including a cancelled wait for a slot.
func (c *Coordinator) Dispatch(ctx context.Context, bc xcam.Broadcast) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.Release(bc.Username)

		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.logger.Warn("dispatch cancelled before start",
				zap.String("username", bc.Username), zap.Error(err))
			return
		}
		defer c.sem.Release(1)

		if c.metrics != nil {
			c.metrics.IncTasksStarted()
			c.metrics.SetActiveTasks(c.ActiveCount())
		}

		c.runTask(ctx, bc)
	}()
}

// Wait blocks until all dispatched tasks have terminated.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
