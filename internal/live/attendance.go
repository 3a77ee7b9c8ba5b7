package live

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tracker records who was in a class and when they were last seen.
type Tracker struct {
	DB *gorm.DB
}

// RecordJoin upserts the (session, participant) attendance row in a single
// statement: first join creates the row with joined-at = last-seen = at,
// every later join or heartbeat only moves last-seen forward. The ON CONFLICT
// form keeps two near-simultaneous joins from producing duplicate rows.
func (t *Tracker) RecordJoin(ctx context.Context, sessionID, participantID uint, at time.Time) error {
	record := models.AttendanceRecord{
		SessionID:     sessionID,
		ParticipantID: participantID,
		JoinedAt:      at,
		LastSeenAt:    at,
	}

	err := t.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "participant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen_at": at,
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("%w: record join: %v", ErrStorage, err)
	}
	return nil
}

// List returns the attendance rows for a session ordered by first join.
func (t *Tracker) List(ctx context.Context, sessionID uint) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := t.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", ErrStorage, err)
	}
	return records, nil
}
