package models

import (
	"time"
)

// Preference is a single directed desirability rating: how much PersonFrom
// wants to be paired with PersonTo, 0-100. At most one row exists per
// (session, from, to); a resubmission replaces every row from that submitter.
type Preference struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	SessionID   string    `json:"session_id" gorm:"not null;uniqueIndex:idx_session_from_to"`
	PersonFrom  string    `json:"person_from" gorm:"not null;uniqueIndex:idx_session_from_to"`
	PersonTo    string    `json:"person_to" gorm:"not null;uniqueIndex:idx_session_from_to"`
	Score       int       `json:"score" gorm:"not null"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`
}
