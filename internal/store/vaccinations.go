package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/perutnina/internal/model"
)

// CreateVaccination schedules a vaccine for a fowl.
func CreateVaccination(ctx context.Context, db *sql.DB, fowlID, vaccineName string, scheduled time.Time, notes string) (*model.VaccinationEvent, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO vaccinations (id, fowl_id, vaccine_name, scheduled_date, notes) VALUES (?, ?, ?, ?, ?)`,
		id, fowlID, vaccineName, scheduled.UTC(), nullString(notes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vaccination: %w", err)
	}
	return GetVaccination(ctx, db, id)
}

// GetVaccination returns a vaccination by ID, or nil if it does not exist.
func GetVaccination(ctx context.Context, db *sql.DB, id string) (*model.VaccinationEvent, error) {
	v := &model.VaccinationEvent{}
	var notes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, fowl_id, vaccine_name, scheduled_date, status, completed_date, notes
		 FROM vaccinations WHERE id = ?`, id,
	).Scan(&v.ID, &v.FowlID, &v.VaccineName, &v.ScheduledDate, &v.Status, &v.CompletedDate, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting vaccination: %w", err)
	}
	v.Notes = notes.String
	return v, nil
}

// ListVaccinations returns the vaccinations of a fowl ordered by schedule.
func ListVaccinations(ctx context.Context, db *sql.DB, fowlID string) ([]model.VaccinationEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, fowl_id, vaccine_name, scheduled_date, status, completed_date, notes
		 FROM vaccinations WHERE fowl_id = ? ORDER BY scheduled_date, id`, fowlID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing vaccinations: %w", err)
	}
	defer rows.Close()

	var events []model.VaccinationEvent
	for rows.Next() {
		var v model.VaccinationEvent
		var notes sql.NullString
		if err := rows.Scan(&v.ID, &v.FowlID, &v.VaccineName, &v.ScheduledDate, &v.Status, &v.CompletedDate, &notes); err != nil {
			return nil, fmt.Errorf("scanning vaccination: %w", err)
		}
		v.Notes = notes.String
		events = append(events, v)
	}
	return events, rows.Err()
}

// CompleteVaccination marks a pending vaccination as completed. It returns
// ErrNotPending when it was already completed.
func CompleteVaccination(ctx context.Context, db *sql.DB, id string, at time.Time, notes string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE vaccinations SET status = ?, completed_date = ?, notes = COALESCE(?, notes)
		 WHERE id = ? AND status = ?`,
		model.VaccinationCompleted, at.UTC(), nullString(notes), id, model.VaccinationPending,
	)
	if err != nil {
		return fmt.Errorf("completing vaccination: %w", err)
	}
	return pendingResult(res)
}
