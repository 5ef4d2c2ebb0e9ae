package task

import (
	"time"

	"github.com/blues/ffb/internal/config"
	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// CrowdsaleFinalizeJob 众筹结算任务
// 时间窗口已过的轮次中，达标且未到最大轮次的仍可被重启，
// 关闭还是重启由平台或创建者决定，任务只记录日志；
// 无法重启的轮次（未达标或已到最大轮次）自动关闭
type CrowdsaleFinalizeJob struct {
	db           *gorm.DB
	config       *config.Config
	builderLogic *logic.BuilderLogic
}

// NewCrowdsaleFinalizeJob 创建众筹结算任务
func NewCrowdsaleFinalizeJob(db *gorm.DB, cfg *config.Config, builderLogic *logic.BuilderLogic) *CrowdsaleFinalizeJob {
	return &CrowdsaleFinalizeJob{
		db:           db,
		config:       cfg,
		builderLogic: builderLogic,
	}
}

// GetName 获取任务名称
func (j *CrowdsaleFinalizeJob) GetName() string {
	return "crowdsale_finalizer"
}

// GetSchedule 获取调度配置
func (j *CrowdsaleFinalizeJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *CrowdsaleFinalizeJob) Execute() {
	logger.Debug("Starting crowdsale finalize task")

	builder, err := j.builderLogic.GetBuilder()
	if err != nil {
		logger.Error("Failed to load builder: %v", err)
		return
	}

	now := time.Now()

	// 查找时间窗口已过的轮次：进行中、未暂停且未被重启
	var crowdsales []model.CrowdsaleModel
	err = j.db.Where("state = ? AND paused = ? AND closing_time <= ? AND next_round_id = 0",
		model.CrowdsaleStateActive, false, now).Find(&crowdsales).Error
	if err != nil {
		logger.Error("Failed to fetch crowdsales for finalizing: %v", err)
		return
	}

	closedCount := 0

	for _, cs := range crowdsales {
		// 可重启的轮次不代为决定，等待关闭或重启
		if cs.WeiRaised.Int.Cmp(&cs.Goal.Int) >= 0 && cs.Round < model.MaxRounds {
			logger.Info("Crowdsale %d awaiting close or restart (raised %s, goal %s)",
				cs.Id, cs.WeiRaised.String(), cs.Goal.String())
			continue
		}

		if err := j.builderLogic.CloseCrowdsale(builder.Owner, cs.Address); err != nil {
			logger.Error("Failed to close crowdsale %d: %v", cs.Id, err)
			continue
		}

		logger.Info("Closed crowdsale %d (raised %s, goal %s)",
			cs.Id, cs.WeiRaised.String(), cs.Goal.String())
		closedCount++
	}

	if closedCount > 0 {
		logger.Info("Crowdsale finalize task completed. Closed %d crowdsales", closedCount)
	}
}
