package models

import (
	"time"
)

// PairingResult is a snapshot of one computed pairing for a session.
// Pairs are stored as JSON, same shape as the API response. Results are
// recomputed on demand; each computation appends a new row so the history
// endpoint and the archive worker have something to work from.
type PairingResult struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	SessionID            string    `json:"session_id" gorm:"not null;index"`
	PairsJSON            string    `json:"-" gorm:"type:text"`
	Unpaired             *string   `json:"unpaired,omitempty"`
	TotalCompatibility   float64   `json:"total_compatibility"`
	AverageCompatibility float64   `json:"average_compatibility"`
	NumPairs             int       `json:"num_pairs"`
	ComputedAt           time.Time `json:"computed_at" gorm:"index"`

	// R2 archive bookkeeping (filled by the archive worker)
	ArchiveURL string     `json:"archive_url,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
}
