package live

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeProvider counts calls and can be told to fail, so state machine
// correctness is verifiable without any network.
type fakeProvider struct {
	mu              sync.Mutex
	createCalls     int
	deleteCalls     int
	credentialCalls int

	failCreate bool
	failDelete bool
	failIssue  bool
}

func (p *fakeProvider) CreateRoom(ctx context.Context, roomID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.failCreate {
		return errors.New("provider create failed")
	}
	return nil
}

func (p *fakeProvider) DeleteRoom(ctx context.Context, roomID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	if p.failDelete {
		return errors.New("provider delete failed")
	}
	return nil
}

func (p *fakeProvider) IssueCredential(roomID, participantName string, participantID uint, isHost bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credentialCalls++
	if p.failIssue {
		return "", errors.New("provider issue failed")
	}
	if isHost {
		return "host-token", nil
	}
	return "attendee-token", nil
}

func (p *fakeProvider) counts() (create, del, cred int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls, p.deleteCalls, p.credentialCalls
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA busy_timeout = 5000;")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.LiveSession{},
		&models.AttendanceRecord{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestManager(t *testing.T, db *gorm.DB) (*Manager, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{}
	return NewManager(db, provider, zap.NewNop(), time.Second), provider
}

var userSeq uint64

func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "user-" + role,
		Email:        fmt.Sprintf("%s-%d@test.local", role, atomic.AddUint64(&userSeq, 1)),
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, instructorID uint) *models.Course {
	t.Helper()
	course := &models.Course{TitleEn: "Algebra I", TitleAr: "الجبر ١", InstructorID: instructorID}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func seedEnrollment(t *testing.T, db *gorm.DB, courseID, userID uint) {
	t.Helper()
	e := &models.Enrollment{CourseID: courseID, UserID: userID, Status: models.EnrollmentActive}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
}

func scheduleSession(t *testing.T, m *Manager, host *models.User, courseID *uint) *models.LiveSession {
	t.Helper()
	session, err := m.Create(context.Background(), host, CreateInput{
		TitleEn:     "Intro",
		CourseID:    courseID,
		ScheduledAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.LiveSession {
	t.Helper()
	var s models.LiveSession
	if err := db.First(&s, id).Error; err != nil {
		t.Fatalf("reload session: %v", err)
	}
	return &s
}
