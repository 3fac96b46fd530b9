package analytics

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/erazemk/perutnina/internal/model"
)

// FileSink writes events as JSON lines, one file per day.
type FileSink struct {
	Dir string
}

// Path returns the file that holds the given day's events.
func (s *FileSink) Path(day time.Time) string {
	return filepath.Join(s.Dir, "events-"+day.UTC().Format(time.DateOnly)+".jsonl")
}

// Export appends events to the day's file.
func (s *FileSink) Export(ctx context.Context, day time.Time, events []model.AnalyticsEvent) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.OpenFile(s.Path(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("writing event %d: %w", ev.ID, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing export file: %w", err)
	}
	return f.Sync()
}
