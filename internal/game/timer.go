package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// Reaper periodically removes rooms that saw no successful intent for longer
// than TTL. Rooms whose host never disconnects cleanly would otherwise live for
// the life of the process.
type Reaper struct {
	registry *Registry
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	onExpire func(room *internal.Room)
}

// NewReaper builds a reaper. onExpire is called for each removed room after it
// has been closed and may be nil.
func NewReaper(registry *Registry, ttl, interval time.Duration, logger *zap.Logger, onExpire func(room *internal.Room)) *Reaper {
	return &Reaper{
		registry: registry,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		onExpire: onExpire,
	}
}

// Sweep runs one expiry pass and returns the number of rooms removed.
func (r *Reaper) Sweep() int {
	expired := r.registry.ExpireIdle(r.ttl)
	for _, room := range expired {
		r.logger.Info("room expired",
			zap.String("room", room.Code),
			zap.Time("last_activity", room.LastActivity),
			zap.Duration("ttl", r.ttl),
		)
		if r.onExpire != nil {
			r.onExpire(room)
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	if r.ttl <= 0 || r.interval <= 0 {
		r.logger.Info("room reaper disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("room reaper started",
		zap.Duration("ttl", r.ttl),
		zap.Duration("interval", r.interval),
	)

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return nil
		}
	}
}
