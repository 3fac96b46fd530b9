package model

import "time"

// Fowl is a bird tracked by the registry. OwnerID is the only authoritative
// ownership field; PreviousOwnerID is kept for audit.
type Fowl struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	PreviousOwnerID string     `json:"previousOwnerId,omitempty"`
	Name            string     `json:"name"`
	Breed           string     `json:"breed,omitempty"`
	Gender          string     `json:"gender"`
	HatchDate       *time.Time `json:"hatchDate,omitempty"`
	SireID          string     `json:"sireId,omitempty"`
	DamID           string     `json:"damId,omitempty"`
	ImageMime       string     `json:"imageMime,omitempty"`
	TransferredAt   int64      `json:"transferredAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Genders.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderUnknown = "unknown"
)

// Parentage is a parent to offspring edge.
type Parentage struct {
	ParentID    string `json:"parentId"`
	OffspringID string `json:"offspringId"`
}
