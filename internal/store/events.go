package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/perutnina/internal/model"
)

// InsertEvent buffers an analytics event until the next export.
func InsertEvent(ctx context.Context, db *sql.DB, name string, params map[string]any, at time.Time) error {
	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding event params: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO analytics_events (name, params, created_at) VALUES (?, ?, ?)`,
		name, string(b), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// ListEventsBefore returns buffered events created before the given time.
func ListEventsBefore(ctx context.Context, db *sql.DB, before time.Time) ([]model.AnalyticsEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, params, created_at FROM analytics_events
		 WHERE created_at < ? ORDER BY created_at, id`, before.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []model.AnalyticsEvent
	for rows.Next() {
		var e model.AnalyticsEvent
		var params string
		var ms int64
		if err := rows.Scan(&e.ID, &e.Name, &params, &ms); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, fmt.Errorf("decoding event %d params: %w", e.ID, err)
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvents removes exported events by ID.
func DeleteEvents(ctx context.Context, db *sql.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM analytics_events WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return fmt.Errorf("deleting events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing event deletion: %w", err)
	}
	return nil
}
