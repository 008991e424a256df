package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"recruitment-portal/internal/booking"
	"recruitment-portal/internal/metrics"
)

type scanner interface {
	ScanAll(ctx context.Context) ([]booking.ConflictGroup, error)
}

// Runner periodically looks for slots held by more than one applicant.
type Runner struct {
	scanner  scanner
	interval time.Duration
	log      *slog.Logger
}

const DefaultInterval = 15 * time.Minute

// NewRunner falls back to DefaultInterval when interval is not positive.
func NewRunner(scanner scanner, interval time.Duration, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{scanner: scanner, interval: interval, log: log}
}

// Start scans once immediately and then every interval until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("conflict audit started", slog.Duration("interval", r.interval))
	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("conflict audit stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	groups, err := r.scanner.ScanAll(ctx)
	if err != nil {
		r.log.Error("conflict audit failed", slog.String("error", err.Error()))
		return
	}

	counts := make(map[booking.Track]int, len(booking.Tracks))
	for _, g := range groups {
		counts[g.Track]++
		r.log.Warn("slot held by several applicants",
			slog.String("track", string(g.Track)),
			slog.String("slot", g.Slot.String()),
			slog.String("occupants", strings.Join(g.Occupants, ",")),
		)
	}
	for _, t := range booking.Tracks {
		metrics.SetConflictGroups(string(t), counts[t])
	}
}
