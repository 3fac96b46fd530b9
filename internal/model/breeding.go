package model

import "time"

// BreedingRecord is one clutch outcome.
type BreedingRecord struct {
	ID             int64     `json:"id"`
	OwnerID        string    `json:"ownerId"`
	SireID         string    `json:"sireId,omitempty"`
	DamID          string    `json:"damId,omitempty"`
	EggsSet        int       `json:"eggsSet"`
	EggsHatched    int       `json:"eggsHatched"`
	OffspringCount int       `json:"offspringCount"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// BreedingDay aggregates breeding records of one calendar day.
type BreedingDay struct {
	Day            time.Time `json:"day"`
	Records        int       `json:"records"`
	EggsSet        int       `json:"eggsSet"`
	EggsHatched    int       `json:"eggsHatched"`
	OffspringCount int       `json:"offspringCount"`
}
