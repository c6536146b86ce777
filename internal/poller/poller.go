// Package poller drives the engine: it periodically lists online
// broadcasters and hands unclaimed ones to the coordinator.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xcam/rec-engine/internal/xcam"
	"github.com/xcam/rec-engine/pkg/metrics"
)

// BroadcastLister is the slice of the API client the poller needs.
type BroadcastLister interface {
	OnlineBroadcasts(ctx context.Context, page, limit int, country string) ([]xcam.Broadcast, error)
}

// Dispatcher is the coordinator surface used by the poll loop.
type Dispatcher interface {
	TryClaim(username string) bool
	Dispatch(ctx context.Context, bc xcam.Broadcast)
}

// Options configures the poll loop.
type Options struct {
	Pages    int
	Limit    int
	Country  string
	Interval time.Duration
}

// Poller repeatedly lists online broadcasters and dispatches recording tasks
// for the ones not already claimed. Errors inside a cycle are logged and the
// next cycle runs on schedule.
type Poller struct {
	opts    Options
	api     BroadcastLister
	coord   Dispatcher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New creates a Poller. metrics may be nil.
func New(opts Options, api BroadcastLister, coord Dispatcher, m *metrics.Metrics, logger *zap.Logger) *Poller {
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 30
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{opts: opts, api: api, coord: coord, metrics: m, logger: logger}
}

// Run polls until ctx is cancelled. It never returns an error; nothing that
// happens inside a cycle is allowed to stop the loop.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poll loop started",
		zap.Int("pages", p.opts.Pages),
		zap.Int("limit", p.opts.Limit),
		zap.Duration("interval", p.opts.Interval))

	for {
		p.Cycle(ctx)
		if p.metrics != nil {
			p.metrics.IncPollCycles()
		}

		select {
		case <-ctx.Done():
			p.logger.Info("poll loop stopping")
			return
		case <-time.After(p.opts.Interval):
		}
	}
}

// Cycle runs one listing pass: fetch up to Pages pages, stop early on an
// empty page, claim and dispatch every broadcaster not already in flight.
func (p *Poller) Cycle(ctx context.Context) {
	dispatched := 0
	for page := 1; page <= p.opts.Pages; page++ {
		broadcasts, err := p.api.OnlineBroadcasts(ctx, page, p.opts.Limit, p.opts.Country)
		if err != nil {
			p.logger.Error("listing failed", zap.Int("page", page), zap.Error(err))
			return
		}
		if len(broadcasts) == 0 {
			break
		}

		for _, bc := range broadcasts {
			if bc.Username == "" {
				p.logger.Warn("broadcast without username, skipping")
				continue
			}
			if !p.coord.TryClaim(bc.Username) {
				continue
			}
			p.coord.Dispatch(ctx, bc)
			dispatched++
		}
	}

	if dispatched > 0 {
		p.logger.Info("poll cycle dispatched tasks", zap.Int("count", dispatched))
	}
}
