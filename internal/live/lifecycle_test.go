package live

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"
)

func TestCreate_GeneratesRoomIDAndSchedules(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)

	session := scheduleSession(t, m, host, nil)

	if session.Status != models.StatusScheduled {
		t.Errorf("status = %q, want %q", session.Status, models.StatusScheduled)
	}
	if session.RoomID == "" || !strings.HasPrefix(session.RoomID, "class-") {
		t.Errorf("room id = %q, want class- prefix", session.RoomID)
	}
	if session.StartedAt != nil || session.EndedAt != nil {
		t.Error("new session must have no start/end timestamps")
	}

	other := scheduleSession(t, m, host, nil)
	if other.RoomID == session.RoomID {
		t.Error("room ids must be unique per session")
	}
}

func TestCreate_StudentForbidden(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	student := seedUser(t, db, models.RoleStudent)

	_, err := m.Create(context.Background(), student, CreateInput{TitleEn: "Nope"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestCreate_UnknownCourse(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)

	missing := uint(999)
	_, err := m.Create(context.Background(), host, CreateInput{TitleEn: "Intro", CourseID: &missing})
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestStart_ScheduledGoesLive(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	got, token, err := m.Start(context.Background(), session.ID, host)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.Status != models.StatusLive {
		t.Errorf("status = %q, want live", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at must be stamped on scheduled->live")
	}
	if token != "host-token" {
		t.Errorf("token = %q, want host credential", token)
	}

	create, _, _ := provider.counts()
	if create != 1 {
		t.Errorf("CreateRoom calls = %d, want 1", create)
	}

	stored := reload(t, db, session.ID)
	if stored.Status != models.StatusLive || stored.StartedAt == nil {
		t.Errorf("stored session not live: status=%q started=%v", stored.Status, stored.StartedAt)
	}
}

func TestStart_AlreadyLiveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("first start: %v", err)
	}
	before := reload(t, db, session.ID)

	// reconnecting instructor: credential re-issued, no re-provisioning
	_, token, err := m.Start(context.Background(), session.ID, host)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if token != "host-token" {
		t.Errorf("token = %q, want host credential", token)
	}

	create, _, _ := provider.counts()
	if create != 1 {
		t.Errorf("CreateRoom calls = %d, want exactly 1", create)
	}

	after := reload(t, db, session.ID)
	if !after.StartedAt.Equal(*before.StartedAt) {
		t.Error("started_at must be set exactly once")
	}
}

func TestStart_EndedFails(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.End(context.Background(), session.ID, host); err != nil {
		t.Fatalf("end: %v", err)
	}

	_, _, err := m.Start(context.Background(), session.ID, host)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}

	create, _, _ := provider.counts()
	if create != 1 {
		t.Errorf("CreateRoom calls = %d, want 1 (no restart provisioning)", create)
	}
}

func TestStart_NonHostForbidden(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	stranger := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	_, _, err := m.Start(context.Background(), session.ID, stranger)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	create, _, _ := provider.counts()
	if create != 0 {
		t.Errorf("CreateRoom calls = %d, want 0", create)
	}
}

func TestStart_UnknownSession(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)

	_, _, err := m.Start(context.Background(), 12345, host)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestStart_ProviderFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	provider.failCreate = true
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	_, _, err := m.Start(context.Background(), session.ID, host)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}

	stored := reload(t, db, session.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("status = %q, want scheduled after rollback", stored.Status)
	}
	if stored.StartedAt != nil {
		t.Error("started_at must be cleared after rollback")
	}

	// the session is startable again once the provider recovers
	provider.failCreate = false
	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("retry start: %v", err)
	}
}

func TestStart_ConcurrentProvisionsOnce(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = m.Start(context.Background(), session.ID, host)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}

	create, _, _ := provider.counts()
	if create != 1 {
		t.Errorf("CreateRoom calls = %d, want exactly 1", create)
	}

	stored := reload(t, db, session.ID)
	if stored.Status != models.StatusLive {
		t.Errorf("status = %q, want live", stored.Status)
	}
}

func TestEnd_ComputesWholeMinuteDuration(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	startAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return startAt }
	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.now = func() time.Time { return startAt.Add(125*time.Minute + 30*time.Second) }
	ended, err := m.End(context.Background(), session.ID, host)
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	if ended.ActualDurationMin != 125 {
		t.Errorf("actual duration = %d, want 125", ended.ActualDurationMin)
	}
	if ended.EndedAt == nil {
		t.Error("ended_at must be stamped on live->ended")
	}

	_, del, _ := provider.counts()
	if del != 1 {
		t.Errorf("DeleteRoom calls = %d, want 1", del)
	}
}

func TestEnd_NotLiveFails(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	// scheduled session cannot be ended
	_, err := m.End(context.Background(), session.ID, host)
	if !errors.Is(err, ErrNotLive) {
		t.Errorf("end scheduled: err = %v, want ErrNotLive", err)
	}

	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.End(context.Background(), session.ID, host); err != nil {
		t.Fatalf("end: %v", err)
	}

	// second end observes ended and fails cleanly
	_, err = m.End(context.Background(), session.ID, host)
	if !errors.Is(err, ErrNotLive) {
		t.Errorf("double end: err = %v, want ErrNotLive", err)
	}

	_, del, _ := provider.counts()
	if del != 1 {
		t.Errorf("DeleteRoom calls = %d, want exactly 1", del)
	}
}

func TestEnd_DeleteFailureDoesNotBlockTransition(t *testing.T) {
	db := newTestDB(t)
	m, provider := newTestManager(t, db)
	provider.failDelete = true
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}

	ended, err := m.End(context.Background(), session.ID, host)
	if err != nil {
		t.Fatalf("end must succeed despite delete failure: %v", err)
	}
	if ended.Status != models.StatusEnded {
		t.Errorf("status = %q, want ended", ended.Status)
	}

	stored := reload(t, db, session.ID)
	if stored.Status != models.StatusEnded {
		t.Errorf("stored status = %q, want ended", stored.Status)
	}
}

func TestEnd_NonHostForbidden(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	stranger := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := m.End(context.Background(), session.ID, stranger)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestTimestampsFollowStatus(t *testing.T) {
	db := newTestDB(t)
	m, _ := newTestManager(t, db)
	host := seedUser(t, db, models.RoleInstructor)
	session := scheduleSession(t, m, host, nil)

	check := func(stage string) {
		s := reload(t, db, session.ID)
		wantStarted := s.Status == models.StatusLive || s.Status == models.StatusEnded
		if (s.StartedAt != nil) != wantStarted {
			t.Errorf("%s: started_at non-nil = %v, want %v", stage, s.StartedAt != nil, wantStarted)
		}
		wantEnded := s.Status == models.StatusEnded
		if (s.EndedAt != nil) != wantEnded {
			t.Errorf("%s: ended_at non-nil = %v, want %v", stage, s.EndedAt != nil, wantEnded)
		}
	}

	check("scheduled")
	if _, _, err := m.Start(context.Background(), session.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}
	check("live")
	if _, err := m.End(context.Background(), session.ID, host); err != nil {
		t.Fatalf("end: %v", err)
	}
	check("ended")
}
