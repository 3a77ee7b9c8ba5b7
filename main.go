package main

import (
	"fmt"
	"log"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/config"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/database"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/logger"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/router"
	"github.com/abdulrahman112001/ElearningPro-sub002/internal/rtc"

	"go.uber.org/zap"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl := logger.New(cfg.Server.Env, cfg.Log.Level)
	defer zl.Sync()

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		zl.Fatal("init database", zap.Error(err))
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		zl.Fatal("migrate database", zap.Error(err))
	}

	provider := rtc.NewLiveKit(cfg.LiveKit)

	r := router.SetupRouter(cfg, db, provider, zl)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	zl.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}
