package model

import "time"

// VaccinationEvent is a scheduled vaccine for a fowl.
type VaccinationEvent struct {
	ID            string     `json:"id"`
	FowlID        string     `json:"fowlId"`
	VaccineName   string     `json:"vaccineName"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	Status        string     `json:"status"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Vaccination statuses.
const (
	VaccinationPending   = "PENDING"
	VaccinationCompleted = "COMPLETED"
)
