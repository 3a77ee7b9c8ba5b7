package models

import "time"

// AttendanceRecord is one row per (session, participant). Repeated joins and
// heartbeats update LastSeenAt only; JoinedAt keeps the first join time.
// Rows are never deleted, they are the attendance proof for the class.
type AttendanceRecord struct {
	ID            uint      `gorm:"primaryKey"`
	SessionID     uint      `gorm:"uniqueIndex:idx_session_participant;not null"`
	ParticipantID uint      `gorm:"uniqueIndex:idx_session_participant;not null"`
	JoinedAt      time.Time `gorm:"not null"`
	LastSeenAt    time.Time `gorm:"not null"`
}
