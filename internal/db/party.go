package db

import (
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the relational backup for room state. It is a coarse checkpoint
// tier: writes happen at game start, order changes and phase-visible
// mutations, not on every message.
type Store struct {
	conn *gorm.DB
}

func NewStore(conn *gorm.DB) *Store {
	if conn == nil {
		return nil
	}
	return &Store{conn: conn}
}

// SaveParty upserts the backup row for a room, keyed by party id.
func (s *Store) SaveParty(partyID, gameKind string, stateJSON []byte) error {
	record := Party{
		PartyID:   partyID,
		GameKind:  gameKind,
		StateJSON: datatypes.JSON(stateJSON),
		Status:    StatusActive,
	}
	return s.conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "party_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_kind", "state_json", "status", "updated_at"}),
	}).Create(&record).Error
}

// MarkInactive flags a finished room's backup row.
func (s *Store) MarkInactive(partyID string) error {
	return s.conn.Model(&Party{}).
		Where("party_id = ?", partyID).
		Update("status", StatusInactive).Error
}

// LoadActive returns the persisted state for an active room, or nil when no
// active row exists.
func (s *Store) LoadActive(partyID string) ([]byte, error) {
	var record Party
	err := s.conn.Where("party_id = ? AND status = ?", partyID, StatusActive).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(record.StateJSON), nil
}

// AllPartyIDs lists every known party id, active or not. Used to avoid
// recycling codes of persisted games.
func (s *Store) AllPartyIDs() ([]string, error) {
	var ids []string
	if err := s.conn.Model(&Party{}).Pluck("party_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
