// Package analytics buffers domain events in the database and exports
// them once a day to an external sink.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

// Recorder appends events to the buffer table.
type Recorder struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewRecorder creates a recorder using the wall clock.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{DB: db, Now: time.Now}
}

// Record buffers one event.
func (r *Recorder) Record(ctx context.Context, name string, params map[string]any) error {
	return store.InsertEvent(ctx, r.DB, name, params, r.Now())
}

// Sink receives one day's worth of exported events.
type Sink interface {
	Export(ctx context.Context, day time.Time, events []model.AnalyticsEvent) error
}

// Exporter moves buffered events into a Sink.
type Exporter struct {
	DB   *sql.DB
	Sink Sink
}

// Run exports every buffered event created before the end of day (UTC),
// then deletes exactly the exported events. Events recorded while the
// export runs stay buffered for the next run.
func (e *Exporter) Run(ctx context.Context, day time.Time) (int, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	cutoff := day.Add(24 * time.Hour)

	events, err := store.ListEventsBefore(ctx, e.DB, cutoff)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		slog.Info("no analytics events to export", "day", day.Format(time.DateOnly))
		return 0, nil
	}

	if err := e.Sink.Export(ctx, day, events); err != nil {
		return 0, fmt.Errorf("exporting events: %w", err)
	}

	ids := make([]int64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	if err := store.DeleteEvents(ctx, e.DB, ids); err != nil {
		return 0, err
	}

	slog.Info("exported analytics events", "day", day.Format(time.DateOnly), "count", len(events))
	return len(events), nil
}
