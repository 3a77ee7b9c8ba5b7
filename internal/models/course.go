package models

import "time"

// Course is the catalog entry a live session may belong to. Course authoring
// itself lives elsewhere; this service only reads it for access decisions.
type Course struct {
	ID           uint   `gorm:"primaryKey"`
	TitleEn      string `gorm:"size:255;not null"`
	TitleAr      string `gorm:"size:255"`
	InstructorID uint   `gorm:"index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Enrollment statuses.
const (
	EnrollmentActive    = "active"
	EnrollmentCancelled = "cancelled"
)

// Enrollment links a student to a course. One row per (course, user).
type Enrollment struct {
	ID        uint   `gorm:"primaryKey"`
	CourseID  uint   `gorm:"uniqueIndex:idx_course_user;not null"`
	UserID    uint   `gorm:"uniqueIndex:idx_course_user;not null"`
	Status    string `gorm:"size:16;not null;default:active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
