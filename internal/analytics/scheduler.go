package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the export every day at 02:00.
const DefaultSchedule = "0 2 * * *"

// Scheduler runs the daily export on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	exporter *Exporter
	timeout  time.Duration
}

// NewScheduler registers the export job. Each run exports the previous
// day's events.
func NewScheduler(exporter *Exporter, spec string, timeout time.Duration) (*Scheduler, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger)))

	s := &Scheduler{cron: c, exporter: exporter, timeout: timeout}
	if _, err := c.AddFunc(spec, s.runYesterday); err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("analytics export scheduled", "next", s.cron.Entries()[0].Next)
}

// Stop stops the scheduler and returns a context that is done when any
// running export has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runYesterday() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if _, err := s.exporter.Run(ctx, day); err != nil {
		slog.Error("analytics export failed", "day", day.Format(time.DateOnly), "error", err)
	}
}
