package live

import (
	"context"
	"errors"
	"testing"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"
)

func TestCanManage(t *testing.T) {
	db := newTestDB(t)
	gate := &Gate{Oracle: &GormOracle{DB: db}}

	host := seedUser(t, db, models.RoleInstructor)
	admin := seedUser(t, db, models.RoleAdmin)
	student := seedUser(t, db, models.RoleStudent)
	other := seedUser(t, db, models.RoleInstructor)

	session := &models.LiveSession{HostID: host.ID, Status: models.StatusScheduled}

	cases := []struct {
		name string
		user *models.User
		want error
	}{
		{"host", host, nil},
		{"admin", admin, nil},
		{"student", student, ErrForbidden},
		{"other instructor", other, ErrForbidden},
	}
	for _, tc := range cases {
		if got := gate.CanManage(session, tc.user); !errors.Is(got, tc.want) && got != tc.want {
			t.Errorf("%s: CanManage = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanJoin_NotLive(t *testing.T) {
	db := newTestDB(t)
	gate := &Gate{Oracle: &GormOracle{DB: db}}
	student := seedUser(t, db, models.RoleStudent)

	for _, status := range []models.SessionStatus{models.StatusScheduled, models.StatusEnded} {
		session := &models.LiveSession{HostID: 1, Status: status}
		if err := gate.CanJoin(context.Background(), session, student); !errors.Is(err, ErrNotLive) {
			t.Errorf("status %q: err = %v, want ErrNotLive", status, err)
		}
	}
}

func TestCanJoin_PublicSession(t *testing.T) {
	db := newTestDB(t)
	gate := &Gate{Oracle: &GormOracle{DB: db}}
	student := seedUser(t, db, models.RoleStudent)

	session := &models.LiveSession{HostID: 1, Status: models.StatusLive, CourseID: nil}
	if err := gate.CanJoin(context.Background(), session, student); err != nil {
		t.Errorf("public live session: err = %v, want allow", err)
	}
}

func TestCanJoin_CourseScoped(t *testing.T) {
	db := newTestDB(t)
	gate := &Gate{Oracle: &GormOracle{DB: db}}

	host := seedUser(t, db, models.RoleInstructor)
	admin := seedUser(t, db, models.RoleAdmin)
	enrolled := seedUser(t, db, models.RoleStudent)
	outsider := seedUser(t, db, models.RoleStudent)
	cancelled := seedUser(t, db, models.RoleStudent)

	course := seedCourse(t, db, host.ID)
	seedEnrollment(t, db, course.ID, enrolled.ID)
	if err := db.Create(&models.Enrollment{
		CourseID: course.ID, UserID: cancelled.ID, Status: models.EnrollmentCancelled,
	}).Error; err != nil {
		t.Fatalf("seed cancelled enrollment: %v", err)
	}

	session := &models.LiveSession{HostID: host.ID, Status: models.StatusLive, CourseID: &course.ID}

	cases := []struct {
		name string
		user *models.User
		want error
	}{
		{"host", host, nil},
		{"admin", admin, nil},
		{"enrolled student", enrolled, nil},
		{"outsider", outsider, ErrNotEnrolled},
		{"cancelled enrollment", cancelled, ErrNotEnrolled},
	}
	for _, tc := range cases {
		got := gate.CanJoin(context.Background(), session, tc.user)
		if tc.want == nil {
			if got != nil {
				t.Errorf("%s: err = %v, want allow", tc.name, got)
			}
			continue
		}
		if !errors.Is(got, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, got, tc.want)
		}
	}
}
