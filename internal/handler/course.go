package handler

import (
	"net/http"
	"strconv"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/middleware"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/models"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourseHandler covers the minimal enrollment writes this service needs; the
// full course catalog lives in the main platform.
type CourseHandler struct {
	DB *gorm.DB
}

func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{DB: db}
}

type enrollReq struct {
	UserID uint `json:"user_id"`
}

// Enroll activates an enrollment for (course, user). Students may enroll
// themselves; admins may enroll anyone. Re-enrolling reactivates a cancelled
// row instead of duplicating it.
func (h *CourseHandler) Enroll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "authentication required")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid course id")
		return
	}
	courseID := uint(id)

	var req enrollReq
	_ = c.ShouldBindJSON(&req)

	targetID := user.ID
	if req.UserID != 0 && req.UserID != user.ID {
		if !user.IsAdmin() {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "you are not allowed to perform this action")
			return
		}
		targetID = req.UserID
	}

	var count int64
	if err := h.DB.Model(&models.Course{}).Where("id = ?", courseID).Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to check course")
		return
	}
	if count == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "course not found")
		return
	}

	enrollment := models.Enrollment{
		CourseID: courseID,
		UserID:   targetID,
		Status:   models.EnrollmentActive,
	}
	err = h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"status": models.EnrollmentActive}),
	}).Create(&enrollment).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to enroll")
		return
	}

	util.Success(c, util.Response{
		"success":   true,
		"course_id": courseID,
		"user_id":   targetID,
	})
}
