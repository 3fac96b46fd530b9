package model

import "time"

// AnalyticsEvent is a buffered analytics record awaiting export.
type AnalyticsEvent struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
	CreatedAt time.Time      `json:"createdAt"`
}
