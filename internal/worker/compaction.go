// Package worker contains the background maintenance loops started by the
// serve command.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// LedgerPruner defines the store operation required for ledger compaction.
// Implemented by store.SQLiteStore.
type LedgerPruner interface {
	PruneSyncLog(ctx context.Context, before time.Time) (int64, error)
}

// CompactionCoordinator periodically prunes sync ledger entries older than
// the retention window.
type CompactionCoordinator struct {
	store     LedgerPruner
	interval  time.Duration
	retention time.Duration
}

// NewCompactionCoordinator creates a compaction coordinator.
func NewCompactionCoordinator(store LedgerPruner, interval, retention time.Duration) *CompactionCoordinator {
	return &CompactionCoordinator{
		store:     store,
		interval:  interval,
		retention: retention,
	}
}

// Run starts the coordinator loop. Blocks until ctx is cancelled.
//
// The first prune waits for a full ticker interval; there is no value in
// competing for the store during startup.
func (c *CompactionCoordinator) Run(ctx context.Context) {
	slog.Info("ledger compaction started",
		"component", "worker",
		"interval", c.interval.String(),
		"retention", c.retention.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ledger compaction stopped",
				"component", "worker",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.prune(ctx)
		}
	}
}

func (c *CompactionCoordinator) prune(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-c.retention)

	removed, err := c.store.PruneSyncLog(ctx, cutoff)
	if err != nil {
		if ctx.Err() != nil {
			return // Graceful shutdown
		}
		slog.Error("ledger prune failed",
			"component", "worker",
			"error", err,
		)
		return
	}

	if removed == 0 {
		slog.Debug("no ledger entries to prune", "component", "worker")
		return
	}

	slog.Info("ledger prune completed",
		"component", "worker",
		"entries_deleted", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
