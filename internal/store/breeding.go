package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/perutnina/internal/model"
)

// CreateBreedingRecord stores one clutch outcome.
func CreateBreedingRecord(ctx context.Context, db *sql.DB, r *model.BreedingRecord) (*model.BreedingRecord, error) {
	if r.EggsHatched > r.EggsSet {
		return nil, fmt.Errorf("eggs hatched (%d) exceeds eggs set (%d)", r.EggsHatched, r.EggsSet)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO breeding_records (owner_id, sire_id, dam_id, eggs_set, eggs_hatched, offspring_count, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.OwnerID, nullString(r.SireID), nullString(r.DamID),
		r.EggsSet, r.EggsHatched, r.OffspringCount, r.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breeding record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting breeding record id: %w", err)
	}

	out := *r
	out.ID = id
	return &out, nil
}

// BreedingDaily aggregates an owner's breeding records per UTC day for
// records in [from, to).
func BreedingDaily(ctx context.Context, db *sql.DB, ownerID string, from, to time.Time) ([]model.BreedingDay, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT recorded_at, eggs_set, eggs_hatched, offspring_count
		 FROM breeding_records
		 WHERE owner_id = ? AND recorded_at >= ? AND recorded_at < ?
		 ORDER BY recorded_at`,
		ownerID, from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying breeding records: %w", err)
	}
	defer rows.Close()

	var days []model.BreedingDay
	for rows.Next() {
		var ms int64
		var set, hatched, offspring int
		if err := rows.Scan(&ms, &set, &hatched, &offspring); err != nil {
			return nil, fmt.Errorf("scanning breeding record: %w", err)
		}

		day := time.UnixMilli(ms).UTC().Truncate(24 * time.Hour)
		if n := len(days); n == 0 || !days[n-1].Day.Equal(day) {
			days = append(days, model.BreedingDay{Day: day})
		}
		d := &days[len(days)-1]
		d.Records++
		d.EggsSet += set
		d.EggsHatched += hatched
		d.OffspringCount += offspring
	}
	return days, rows.Err()
}
