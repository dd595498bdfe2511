package db

import (
	"time"

	"gorm.io/datatypes"
)

// Party is the relational backup row for one room. StateJSON holds the full
// persisted room state; Status flips to "inactive" when the room is torn
// down after its game ended.
type Party struct {
	ID        uint           `gorm:"primaryKey"`
	PartyID   string         `gorm:"size:64;uniqueIndex;not null"`
	GameKind  string         `gorm:"size:32;not null"`
	StateJSON datatypes.JSON `gorm:"type:jsonb;not null"`
	Status    string         `gorm:"size:16;not null;default:active"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
