package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/observability/metrics"
)

// StatsWorker periodically republishes per-activity seat gauges from the
// source of truth. The gauges are observability only; request handlers
// always count registrations directly.
type StatsWorker struct {
	activities domain.ActivityRepository
	logger     *slog.Logger
	interval   time.Duration
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(activities domain.ActivityRepository, logger *slog.Logger, interval time.Duration) *StatsWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &StatsWorker{
		activities: activities,
		logger:     logger,
		interval:   interval,
	}
}

// Start begins the refresh loop. Blocks until ctx is cancelled.
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	summaries, err := w.activities.ListWithCounts(ctx)
	if err != nil {
		w.logger.Error("failed to refresh activity stats",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, s := range summaries {
		metrics.SetActivitySeats(s.Name, s.CurrentParticipants, s.MaxParticipants)
	}
}
