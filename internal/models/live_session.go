package models

import "time"

// SessionStatus is the closed set of lifecycle states for a live session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusEnded     SessionStatus = "ended"
)

// LiveSession is a scheduled or active class.
//
// RoomID is generated once at creation and never changes; it doubles as the
// external media room's name. StartedAt is stamped exactly once on the
// scheduled->live transition, EndedAt and ActualDurationMin exactly once on
// live->ended. All transitions go through the lifecycle manager.
type LiveSession struct {
	ID                 uint   `gorm:"primaryKey"`
	TitleEn            string `gorm:"size:255;not null"`
	TitleAr            string `gorm:"size:255"`
	HostID             uint   `gorm:"index;not null"`
	CourseID           *uint  `gorm:"index"` // nil means public session
	ScheduledAt        time.Time
	PlannedDurationMin int           `gorm:"default:60"`
	Status             SessionStatus `gorm:"size:16;index;not null;default:scheduled"`
	RoomID             string        `gorm:"size:64;uniqueIndex;not null"`
	StartedAt          *time.Time
	EndedAt            *time.Time
	ActualDurationMin  int `gorm:"default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsHost reports whether userID owns this session.
func (s *LiveSession) IsHost(userID uint) bool { return s.HostID == userID }
