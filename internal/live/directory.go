package live

import (
	"context"
	"fmt"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"

	"gorm.io/gorm"
)

// Filters narrows a directory listing. Zero values mean "no filter".
type Filters struct {
	Status   models.SessionStatus
	CourseID *uint
}

// Directory lists sessions scoped to what the viewer is allowed to see.
type Directory struct {
	DB *gorm.DB
}

// statusOrder surfaces what the viewer most likely wants to act on first:
// live classes, then upcoming ones by time, ended last.
const statusOrder = "CASE status WHEN 'live' THEN 0 WHEN 'scheduled' THEN 1 ELSE 2 END, scheduled_at ASC, id ASC"

// List applies role scoping, then the caller's filters.
// Instructors see their own sessions, students see public sessions plus those
// of courses they are enrolled in, admins see everything.
func (d *Directory) List(ctx context.Context, u *models.User, f Filters) ([]models.LiveSession, error) {
	q := d.DB.WithContext(ctx).Model(&models.LiveSession{})

	switch u.Role {
	case models.RoleAdmin:
		// unscoped
	case models.RoleInstructor:
		q = q.Where("host_id = ?", u.ID)
	default:
		enrolled := d.DB.Model(&models.Enrollment{}).
			Select("course_id").
			Where("user_id = ? AND status = ?", u.ID, models.EnrollmentActive)
		q = q.Where("course_id IS NULL OR course_id IN (?)", enrolled)
	}

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CourseID != nil {
		q = q.Where("course_id = ?", *f.CourseID)
	}

	var sessions []models.LiveSession
	if err := q.Order(statusOrder).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStorage, err)
	}
	return sessions, nil
}
