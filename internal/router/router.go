package router

import (
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/config"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/handler"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/live"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/middleware"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/rtc"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and wires the live-session core.
func SetupRouter(cfg *config.Config, db *gorm.DB, provider rtc.RoomProvider, log *zap.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	// core wiring
	manager := live.NewManager(db, provider, log, cfg.LiveKit.Timeout())
	gate := &live.Gate{Oracle: &live.GormOracle{DB: db}}
	tracker := &live.Tracker{DB: db}
	directory := &live.Directory{DB: db}

	// ====== API ======
	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, db),
		middleware.AuditMiddleware(db),
	)

	protected.GET("/me", handler.GetMe)

	sessionHandler := handler.NewSessionHandler(manager, gate, tracker, directory, cfg.LiveKit.WSURL, log)
	protected.POST("/sessions", sessionHandler.Create)
	protected.GET("/sessions", sessionHandler.List)
	protected.GET("/sessions/:id", sessionHandler.Get)
	protected.POST("/sessions/:id/start", sessionHandler.Start)
	protected.POST("/sessions/:id/end", sessionHandler.End)
	protected.POST("/sessions/:id/join", sessionHandler.Join)
	protected.POST("/sessions/:id/heartbeat", sessionHandler.Heartbeat)
	protected.GET("/sessions/:id/attendance", sessionHandler.Attendance)

	courseHandler := handler.NewCourseHandler(db)
	protected.POST("/courses/:id/enroll", courseHandler.Enroll)

	return r
}
