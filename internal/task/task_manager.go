package task

import (
	"github.com/blues/ffb/internal/config"
	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// TaskManager 任务管理器
type TaskManager struct {
	scheduler      gocron.Scheduler
	db             *gorm.DB
	builderLogic   *logic.BuilderLogic
	crowdsaleLogic *logic.CrowdsaleLogic
	config         *config.Config
}

// NewTaskManager 创建新的任务管理器
func NewTaskManager(db *gorm.DB, builderLogic *logic.BuilderLogic, crowdsaleLogic *logic.CrowdsaleLogic, cfg *config.Config) *TaskManager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &TaskManager{
		scheduler:      s,
		db:             db,
		builderLogic:   builderLogic,
		crowdsaleLogic: crowdsaleLogic,
		config:         cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, builderLogic *logic.BuilderLogic, crowdsaleLogic *logic.CrowdsaleLogic, cfg *config.Config) *TaskManager {
	manager := NewTaskManager(db, builderLogic, crowdsaleLogic, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *TaskManager) RegisterJobs() {
	m.registerJob(NewCrowdsaleFinalizeJob(m.db, m.config, m.builderLogic))
	m.registerJob(NewCrowdsaleExpireJob(m.db, m.config, m.crowdsaleLogic))
}

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

func (m *TaskManager) registerJob(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *TaskManager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
