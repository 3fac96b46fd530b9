package analytics

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/erazemk/perutnina/internal/db"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

type memorySink struct {
	days   []time.Time
	events []model.AnalyticsEvent
	err    error
}

func (s *memorySink) Export(ctx context.Context, day time.Time, events []model.AnalyticsEvent) error {
	if s.err != nil {
		return s.err
	}
	s.days = append(s.days, day)
	s.events = append(s.events, events...)
	return nil
}

func recordAt(t *testing.T, r *Recorder, at time.Time, name string, params map[string]any) {
	t.Helper()
	r.Now = func() time.Time { return at }
	if err := r.Record(context.Background(), name, params); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestExporterRun(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	r := NewRecorder(database)

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	recordAt(t, r, day.Add(3*time.Hour), "transfer_initiated", map[string]any{"method": "email"})
	recordAt(t, r, day.Add(20*time.Hour), "transfer_verified", map[string]any{"outcome": "success"})
	recordAt(t, r, day.Add(26*time.Hour), "transfer_initiated", map[string]any{"method": "phone"})

	sink := &memorySink{}
	e := &Exporter{DB: database, Sink: sink}

	n, err := e.Run(ctx, day.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 || len(sink.events) != 2 {
		t.Fatalf("expected 2 exported events, got %d (%d in sink)", n, len(sink.events))
	}
	if !sink.days[0].Equal(day) {
		t.Errorf("expected day %v, got %v", day, sink.days[0])
	}

	rest, _ := store.ListEventsBefore(ctx, database, day.Add(48*time.Hour))
	if len(rest) != 1 || rest[0].Params["method"] != "phone" {
		t.Errorf("expected next day's event to stay buffered, got %+v", rest)
	}

	// Nothing left for that day.
	n, err = e.Run(ctx, day)
	if err != nil || n != 0 {
		t.Errorf("expected empty second run, got %d, %v", n, err)
	}
}

func TestExporterKeepsEventsOnSinkFailure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	r := NewRecorder(database)

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	recordAt(t, r, day.Add(time.Hour), "transfer_rejected", nil)

	e := &Exporter{DB: database, Sink: &memorySink{err: errors.New("warehouse down")}}
	if _, err := e.Run(ctx, day); err == nil {
		t.Fatal("expected error from failing sink")
	}

	rest, _ := store.ListEventsBefore(ctx, database, day.Add(24*time.Hour))
	if len(rest) != 1 {
		t.Errorf("expected event to stay buffered, got %d", len(rest))
	}
}

func TestFileSink(t *testing.T) {
	sink := &FileSink{Dir: t.TempDir()}
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	events := []model.AnalyticsEvent{
		{ID: 1, Name: "transfer_initiated", Params: map[string]any{"method": "email"}, CreatedAt: day},
		{ID: 2, Name: "transfer_verified", Params: map[string]any{}, CreatedAt: day.Add(time.Hour)},
	}
	if err := sink.Export(context.Background(), day, events); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(sink.Path(day))
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev model.AnalyticsEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %d: %v", lines+1, err)
		}
		if ev.ID != events[lines].ID || ev.Name != events[lines].Name {
			t.Errorf("line %d: got %+v", lines+1, ev)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler(&Exporter{}, "not a cron spec", time.Minute); err == nil {
		t.Error("expected error for invalid schedule")
	}

	s, err := NewScheduler(&Exporter{}, DefaultSchedule, time.Minute)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.Start()
	<-s.Stop().Done()
}
