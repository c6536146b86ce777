// Package resolver picks a working stream URL for a broadcaster.
package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xcam/rec-engine/internal/xcam"
)

// ErrNoStream is returned when neither the preview hint nor the live-info
// fallbacks yield a usable stream URL.
var ErrNoStream = errors.New("no stream url available")

// LiveInfoFetcher is the slice of the API client the resolver needs.
type LiveInfoFetcher interface {
	LiveInfo(ctx context.Context, username string) (*xcam.LiveInfo, error)
}

// Resolver resolves a broadcaster to a stream URL using a fixed preference
// order: the listing preview hint, then the live-info cdnURL, then edgeURL.
// The CDN URL is preferred over the edge URL because it has proven more
// stable for long pulls.
type Resolver struct {
	api    LiveInfoFetcher
	logger *zap.Logger
}

// New creates a Resolver backed by the given API client.
func New(api LiveInfoFetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{api: api, logger: logger}
}

// Resolve returns a stream URL for the broadcast or ErrNoStream.
func (r *Resolver) Resolve(ctx context.Context, bc xcam.Broadcast) (string, error) {
	if bc.Preview.Src != "" {
		return bc.Preview.Src, nil
	}

	r.logger.Debug("preview hint empty, querying live info", zap.String("username", bc.Username))
	info, err := r.api.LiveInfo(ctx, bc.Username)
	if err != nil {
		return "", err
	}
	if info.CDNURL != "" {
		return info.CDNURL, nil
	}
	if info.EdgeURL != "" {
		return info.EdgeURL, nil
	}
	return "", ErrNoStream
}
