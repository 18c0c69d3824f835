package core

// scheduler.go runs history retention in the background.
//
// Entries older than HISTORY_RETENTION are pruned immediately on start and
// then every HISTORY_PRUNE_INTERVAL. A failed run is logged and retried on
// the next tick; it never stops the server.

import (
	"context"
	"log/slog"
	"time"
)

// StartRetentionScheduler blocks until ctx is cancelled, pruning history on
// each tick. It returns immediately when retention is disabled.
func (s *Service) StartRetentionScheduler(ctx context.Context) {
	retention := s.historyCfg.Retention
	interval := s.historyCfg.PruneInterval
	if retention <= 0 || interval <= 0 {
		slog.Info("history retention disabled")
		return
	}

	slog.Info("retention scheduler started",
		"retention", retention.String(),
		"interval", interval.String(),
		"backend", s.store.Backend(),
	)

	s.runRetentionJob(ctx, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, retention)
		}
	}
}

// runRetentionJob performs one prune cycle.
func (s *Service) runRetentionJob(ctx context.Context, retention time.Duration) {
	start := time.Now()
	cutoff := start.Add(-retention).UTC()

	removed, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}

	slog.Info("pruned conversion history",
		"entries_removed", removed,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
