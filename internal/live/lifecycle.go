package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/rtc"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager owns the session state machine (scheduled -> live -> ended).
// Transitions are conditional updates at the storage layer, so concurrent
// calls against the same session are safe without in-process locks: whoever
// wins the compare-and-swap performs the side effects, everyone else observes
// the new state.
type Manager struct {
	db       *gorm.DB
	provider rtc.RoomProvider
	log      *zap.Logger
	timeout  time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewManager wires the lifecycle manager. timeout bounds every provider call.
func NewManager(db *gorm.DB, provider rtc.RoomProvider, log *zap.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		db:       db,
		provider: provider,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// CreateInput carries the fields a host supplies when scheduling a class.
type CreateInput struct {
	TitleEn            string
	TitleAr            string
	CourseID           *uint
	HostID             uint // admin may schedule on behalf of another host
	ScheduledAt        time.Time
	PlannedDurationMin int
}

// Create schedules a new session. The room identifier is generated here, once,
// and never changes afterwards.
func (m *Manager) Create(ctx context.Context, requester *models.User, in CreateInput) (*models.LiveSession, error) {
	if !requester.IsInstructor() && !requester.IsAdmin() {
		return nil, ErrForbidden
	}

	hostID := requester.ID
	if in.HostID != 0 && requester.IsAdmin() {
		hostID = in.HostID
	}

	if in.CourseID != nil {
		var count int64
		if err := m.db.WithContext(ctx).Model(&models.Course{}).
			Where("id = ?", *in.CourseID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("%w: query course: %v", ErrStorage, err)
		}
		if count == 0 {
			return nil, ErrCourseNotFound
		}
	}

	if in.PlannedDurationMin <= 0 {
		in.PlannedDurationMin = 60
	}
	if in.ScheduledAt.IsZero() {
		in.ScheduledAt = m.now()
	}

	session := &models.LiveSession{
		TitleEn:            in.TitleEn,
		TitleAr:            in.TitleAr,
		HostID:             hostID,
		CourseID:           in.CourseID,
		ScheduledAt:        in.ScheduledAt,
		PlannedDurationMin: in.PlannedDurationMin,
		Status:             models.StatusScheduled,
		RoomID:             m.newRoomID(),
	}

	if err := m.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrStorage, err)
	}

	m.log.Info("session scheduled",
		zap.Uint("session_id", session.ID),
		zap.Uint("host_id", session.HostID),
		zap.String("room_id", session.RoomID))
	return session, nil
}

// newRoomID builds a unique room name: timestamp plus a random suffix.
func (m *Manager) newRoomID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("class-%s-%s", m.now().Format("20060102150405"), suffix)
}

// Get loads a single session.
func (m *Manager) Get(ctx context.Context, id uint) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := m.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: query session: %v", ErrStorage, err)
	}
	return &session, nil
}

// Start takes a scheduled session live and returns a host credential.
//
// The scheduled->live compare-and-swap is claimed first; only the winner
// provisions the room, so duplicate retries create it at most once. If
// provisioning fails the winner swaps the session back to scheduled, leaving
// no partial state. Calling Start on a session that is already live is a
// no-op that re-issues the host credential (a reconnecting instructor), and
// a session that has ended cannot be restarted.
func (m *Manager) Start(ctx context.Context, sessionID uint, requester *models.User) (*models.LiveSession, string, error) {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if !session.IsHost(requester.ID) {
		return nil, "", ErrForbidden
	}

	switch session.Status {
	case models.StatusEnded:
		return nil, "", ErrInvalidTransition
	case models.StatusLive:
		return m.issueHostCredential(session, requester)
	}

	startedAt := m.now()
	res := m.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", session.ID, models.StatusScheduled).
		Updates(map[string]interface{}{
			"status":     models.StatusLive,
			"started_at": startedAt,
		})
	if res.Error != nil {
		return nil, "", fmt.Errorf("%w: start transition: %v", ErrStorage, res.Error)
	}

	if res.RowsAffected == 0 {
		// lost the race: someone else transitioned this session first
		session, err = m.Get(ctx, sessionID)
		if err != nil {
			return nil, "", err
		}
		if session.Status == models.StatusLive {
			return m.issueHostCredential(session, requester)
		}
		return nil, "", ErrInvalidTransition
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.provider.CreateRoom(cctx, session.RoomID); err != nil {
		// compensate so the session is not stranded live without a room
		rollback := m.db.Model(&models.LiveSession{}).
			Where("id = ? AND status = ?", session.ID, models.StatusLive).
			Updates(map[string]interface{}{
				"status":     models.StatusScheduled,
				"started_at": nil,
			})
		if rollback.Error != nil {
			m.log.Error("start rollback failed",
				zap.Uint("session_id", session.ID), zap.Error(rollback.Error))
		}
		m.log.Warn("room provisioning failed",
			zap.Uint("session_id", session.ID),
			zap.String("room_id", session.RoomID),
			zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	session.Status = models.StatusLive
	session.StartedAt = &startedAt

	m.log.Info("session live",
		zap.Uint("session_id", session.ID),
		zap.String("room_id", session.RoomID))
	return m.issueHostCredential(session, requester)
}

func (m *Manager) issueHostCredential(session *models.LiveSession, host *models.User) (*models.LiveSession, string, error) {
	token, err := m.provider.IssueCredential(session.RoomID, host.Name, host.ID, true)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return session, token, nil
}

// IssueCredential mints an attendee (or host) token for an already-live
// session. Authorization is the caller's responsibility via the gate.
func (m *Manager) IssueCredential(session *models.LiveSession, u *models.User) (string, bool, error) {
	isHost := session.IsHost(u.ID)
	token, err := m.provider.IssueCredential(session.RoomID, u.Name, u.ID, isHost)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return token, isHost, nil
}

// End finalizes a live session: live->ended compare-and-swap, ended-at stamp
// and actual duration in whole minutes. Room deletion is advisory cleanup; a
// provider failure is logged and swallowed because the session row, not the
// external room, is the source of truth.
func (m *Manager) End(ctx context.Context, sessionID uint, requester *models.User) (*models.LiveSession, error) {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsHost(requester.ID) {
		return nil, ErrForbidden
	}
	if session.Status != models.StatusLive {
		return nil, ErrNotLive
	}

	endedAt := m.now()
	duration := 0
	if session.StartedAt != nil {
		duration = int(endedAt.Sub(*session.StartedAt).Minutes())
		if duration < 0 {
			duration = 0
		}
	}

	res := m.db.WithContext(ctx).Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", session.ID, models.StatusLive).
		Updates(map[string]interface{}{
			"status":              models.StatusEnded,
			"ended_at":            endedAt,
			"actual_duration_min": duration,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: end transition: %v", ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		// a concurrent End got there first
		return nil, ErrNotLive
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.provider.DeleteRoom(cctx, session.RoomID); err != nil {
		m.log.Warn("room deletion failed, leaving it to provider expiry",
			zap.Uint("session_id", session.ID),
			zap.String("room_id", session.RoomID),
			zap.Error(err))
	}

	session.Status = models.StatusEnded
	session.EndedAt = &endedAt
	session.ActualDurationMin = duration

	m.log.Info("session ended",
		zap.Uint("session_id", session.ID),
		zap.Int("duration_min", duration))
	return session, nil
}
