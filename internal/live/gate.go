package live

import (
	"context"
	"fmt"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"

	"gorm.io/gorm"
)

// EnrollmentOracle answers "may this user access this course's content?".
// Read-only; backed by the enrollments table in this deployment.
type EnrollmentOracle interface {
	IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error)
}

// GormOracle is the database-backed enrollment oracle.
type GormOracle struct {
	DB *gorm.DB
}

func (o *GormOracle) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := o.DB.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.EnrollmentActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: query enrollment: %v", ErrStorage, err)
	}
	return count > 0, nil
}

// Gate is the per-request authorization decision point. Pure policy: it reads
// the session and user it is handed plus the enrollment oracle, and returns
// nil to allow or a taxonomy error as the denial reason.
type Gate struct {
	Oracle EnrollmentOracle
}

// CanManage allows the session's host and administrators.
func (g *Gate) CanManage(s *models.LiveSession, u *models.User) error {
	if s.IsHost(u.ID) || u.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

// CanJoin decides whether u may enter the session's room right now.
// The session must be live. Courseless sessions are public to any
// authenticated user; course-scoped sessions additionally require the host
// role on this session, admin, or an active enrollment.
func (g *Gate) CanJoin(ctx context.Context, s *models.LiveSession, u *models.User) error {
	if s.Status != models.StatusLive {
		return ErrNotLive
	}
	if s.CourseID == nil {
		return nil
	}
	if s.IsHost(u.ID) || u.IsAdmin() {
		return nil
	}
	enrolled, err := g.Oracle.IsEnrolled(ctx, u.ID, *s.CourseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}
