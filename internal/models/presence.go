package models

import "time"

// Presence is the online state of one user. A new connection overwrites the
// previous session and bumps Token, so a disconnect carrying an older token
// can be told apart from the current one.
type Presence struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)"`
	Online    bool      `gorm:"not null;default:false"`
	SessionID string    `gorm:"type:varchar(64);index"`
	Token     uint64    `gorm:"not null;default:0"`
	LastSeen  time.Time
}
