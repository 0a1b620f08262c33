package models

import (
	"time"
)

// Session is one pairing event with its own roster and ratings.
// Sessions are created once by the coordinator and never edited afterwards;
// the expiry scheduler is the only writer of IsActive.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"index"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:SessionID"`
}

// Participant is one roster member. Usernames are unique per session,
// not globally — the same name in two sessions is two participants.
type Participant struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	SessionID    string    `json:"session_id" gorm:"not null;uniqueIndex:idx_session_username"`
	Username     string    `json:"username" gorm:"not null;uniqueIndex:idx_session_username"`
	PasswordHash string    `json:"-" gorm:"not null"`
	HasSubmitted bool      `json:"has_submitted" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}
