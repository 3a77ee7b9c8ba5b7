package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/live"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/middleware"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler exposes the live-class orchestration API.
type SessionHandler struct {
	Manager   *live.Manager
	Gate      *live.Gate
	Tracker   *live.Tracker
	Directory *live.Directory
	WSURL     string
	Log       *zap.Logger
}

func NewSessionHandler(manager *live.Manager, gate *live.Gate, tracker *live.Tracker, directory *live.Directory, wsURL string, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		Manager:   manager,
		Gate:      gate,
		Tracker:   tracker,
		Directory: directory,
		WSURL:     wsURL,
		Log:       log,
	}
}

// ---------- 请求/响应结构 ----------

type createSessionReq struct {
	TitleEn            string `json:"title_en" binding:"required,max=255"`
	TitleAr            string `json:"title_ar" binding:"max=255"`
	CourseID           *uint  `json:"course_id"`
	HostID             uint   `json:"host_id"`
	ScheduledAt        string `json:"scheduled_at"`
	PlannedDurationMin int    `json:"planned_duration_min"`
}

type sessionResp struct {
	ID                 uint       `json:"id"`
	TitleEn            string     `json:"title_en"`
	TitleAr            string     `json:"title_ar"`
	HostID             uint       `json:"host_id"`
	CourseID           *uint      `json:"course_id"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	PlannedDurationMin int        `json:"planned_duration_min"`
	Status             string     `json:"status"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	ActualDurationMin  int        `json:"actual_duration_min"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toSessionResp(s *models.LiveSession) sessionResp {
	return sessionResp{
		ID:                 s.ID,
		TitleEn:            s.TitleEn,
		TitleAr:            s.TitleAr,
		HostID:             s.HostID,
		CourseID:           s.CourseID,
		ScheduledAt:        s.ScheduledAt,
		PlannedDurationMin: s.PlannedDurationMin,
		Status:             string(s.Status),
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
		ActualDurationMin:  s.ActualDurationMin,
		CreatedAt:          s.CreatedAt,
	}
}

// ---------- 工具函数 ----------

// writeLiveError maps core taxonomy errors onto stable responses.
func writeLiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, live.ErrSessionNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, live.ErrSessionNotFound.Error())
	case errors.Is(err, live.ErrCourseNotFound):
		util.Error(c, http.StatusNotFound, util.CodeNotFound, live.ErrCourseNotFound.Error())
	case errors.Is(err, live.ErrForbidden):
		util.Error(c, http.StatusForbidden, util.CodeForbidden, live.ErrForbidden.Error())
	case errors.Is(err, live.ErrNotEnrolled):
		util.Error(c, http.StatusForbidden, util.CodeForbidden, live.ErrNotEnrolled.Error())
	case errors.Is(err, live.ErrNotLive):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, live.ErrNotLive.Error())
	case errors.Is(err, live.ErrInvalidTransition):
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, live.ErrInvalidTransition.Error())
	case errors.Is(err, live.ErrProvider):
		util.Error(c, http.StatusBadGateway, util.CodeProviderErr, live.ErrProvider.Error())
	default:
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "internal error, please retry")
	}
}

func sessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid session id")
		return 0, false
	}
	return uint(id), true
}

func parseScheduledAt(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ---------- 创建课堂 ----------

func (h *SessionHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}

	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	scheduledAt, ok := parseScheduledAt(req.ScheduledAt)
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid scheduled_at")
		return
	}

	session, err := h.Manager.Create(c.Request.Context(), user, live.CreateInput{
		TitleEn:            req.TitleEn,
		TitleAr:            req.TitleAr,
		CourseID:           req.CourseID,
		HostID:             req.HostID,
		ScheduledAt:        scheduledAt,
		PlannedDurationMin: req.PlannedDurationMin,
	})
	if err != nil {
		writeLiveError(c, err)
		return
	}

	util.Success(c, util.Response{
		"session": toSessionResp(session),
		"room_id": session.RoomID,
	})
}

// ---------- 课堂列表 ----------

func (h *SessionHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}

	var filters live.Filters
	switch status := c.Query("status"); status {
	case "":
	case string(models.StatusScheduled), string(models.StatusLive), string(models.StatusEnded):
		filters.Status = models.SessionStatus(status)
	default:
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid status filter")
		return
	}
	if courseStr := c.Query("course_id"); courseStr != "" {
		id, err := strconv.Atoi(courseStr)
		if err != nil || id <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid course_id filter")
			return
		}
		courseID := uint(id)
		filters.CourseID = &courseID
	}

	sessions, err := h.Directory.List(c.Request.Context(), user, filters)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	items := make([]sessionResp, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSessionResp(&sessions[i]))
	}

	util.Success(c, util.Response{
		"items": items,
		"total": len(items),
	})
}

// ---------- 课堂详情 ----------

// Get returns scheduling metadata to any authenticated user; room internals
// only when the gate would let the viewer join.
func (h *SessionHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.Manager.Get(c.Request.Context(), id)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	resp := util.Response{
		"session": toSessionResp(session),
	}
	if h.Gate.CanJoin(c.Request.Context(), session, user) == nil {
		resp["room_id"] = session.RoomID
		resp["ws_url"] = h.WSURL
	}

	util.Success(c, resp)
}

// ---------- 开始上课 ----------

func (h *SessionHandler) Start(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, token, err := h.Manager.Start(c.Request.Context(), id, user)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	util.Success(c, util.Response{
		"token":   token,
		"room_id": session.RoomID,
		"ws_url":  h.WSURL,
	})
}

// ---------- 下课 ----------

func (h *SessionHandler) End(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.Manager.End(c.Request.Context(), id, user)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	util.Success(c, util.Response{
		"success":             true,
		"actual_duration_min": session.ActualDurationMin,
	})
}

// ---------- 学生进入课堂 ----------

func (h *SessionHandler) Join(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session, err := h.Manager.Get(ctx, id)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	if err := h.Gate.CanJoin(ctx, session, user); err != nil {
		writeLiveError(c, err)
		return
	}

	token, isHost, err := h.Manager.IssueCredential(session, user)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	// attendance is best-effort telemetry, never a join precondition
	if err := h.Tracker.RecordJoin(ctx, session.ID, user.ID, time.Now()); err != nil {
		h.Log.Warn("record join failed",
			zap.Uint("session_id", session.ID),
			zap.Uint("participant_id", user.ID),
			zap.Error(err))
	}

	util.Success(c, util.Response{
		"token":   token,
		"room_id": session.RoomID,
		"ws_url":  h.WSURL,
		"is_host": isHost,
	})
}

// ---------- 心跳 ----------

// Heartbeat moves the viewer's last-seen forward while they stay in class.
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session, err := h.Manager.Get(ctx, id)
	if err != nil {
		writeLiveError(c, err)
		return
	}
	if err := h.Gate.CanJoin(ctx, session, user); err != nil {
		writeLiveError(c, err)
		return
	}

	if err := h.Tracker.RecordJoin(ctx, session.ID, user.ID, time.Now()); err != nil {
		writeLiveError(c, err)
		return
	}

	util.Success(c, util.Response{
		"success": true,
	})
}

// ---------- 考勤记录 ----------

func (h *SessionHandler) Attendance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session, err := h.Manager.Get(ctx, id)
	if err != nil {
		writeLiveError(c, err)
		return
	}
	if err := h.Gate.CanManage(session, user); err != nil {
		writeLiveError(c, err)
		return
	}

	records, err := h.Tracker.List(ctx, session.ID)
	if err != nil {
		writeLiveError(c, err)
		return
	}

	type attendanceResp struct {
		ParticipantID uint      `json:"participant_id"`
		JoinedAt      time.Time `json:"joined_at"`
		LastSeenAt    time.Time `json:"last_seen_at"`
	}
	items := make([]attendanceResp, 0, len(records))
	for _, r := range records {
		items = append(items, attendanceResp{
			ParticipantID: r.ParticipantID,
			JoinedAt:      r.JoinedAt,
			LastSeenAt:    r.LastSeenAt,
		})
	}

	util.Success(c, util.Response{
		"items": items,
		"total": len(items),
	})
}
