package main

import (
	"time"

	"github.com/blues/ffb/internal/config"
	"github.com/blues/ffb/internal/database"
	"github.com/blues/ffb/internal/event"
	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/router"
	"github.com/blues/ffb/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := logger.Setup(cfg.Log); err != nil {
		logger.Fatal("Failed to setup logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化平台
	tokenLogic := logic.NewTokenLogic(db)
	crowdsaleLogic := logic.NewCrowdsaleLogic(db, tokenLogic)
	builderLogic := logic.NewBuilderLogic(db, tokenLogic, crowdsaleLogic)
	if err := builderLogic.Init(cfg.Builder.Owner, cfg.Builder.Wallet, cfg.Builder.RatePerMille); err != nil {
		logger.Fatal("Failed to initialize builder: %v", err)
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, cfg)

	// 启动定时任务
	manager := task.Start(db, builderLogic, crowdsaleLogic, cfg)
	defer manager.Stop()

	// 启动事件分发器
	dispatcher, err := event.NewDispatcher(db, crowdsaleLogic, tokenLogic,
		cfg.Task.PoolSize, time.Duration(cfg.Task.Interval)*time.Second)
	if err != nil {
		logger.Fatal("Failed to create event dispatcher: %v", err)
	}
	dispatcher.Start()
	defer dispatcher.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
