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

// CrowdsaleExpireJob 众筹过期任务
// 退款状态满一年后清扫未领取资金并标记过期
type CrowdsaleExpireJob struct {
	db             *gorm.DB
	config         *config.Config
	crowdsaleLogic *logic.CrowdsaleLogic
}

// NewCrowdsaleExpireJob 创建众筹过期任务
func NewCrowdsaleExpireJob(db *gorm.DB, cfg *config.Config, crowdsaleLogic *logic.CrowdsaleLogic) *CrowdsaleExpireJob {
	return &CrowdsaleExpireJob{
		db:             db,
		config:         cfg,
		crowdsaleLogic: crowdsaleLogic,
	}
}

// GetName 获取任务名称
func (j *CrowdsaleExpireJob) GetName() string {
	return "crowdsale_expirer"
}

// GetSchedule 获取调度配置
func (j *CrowdsaleExpireJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *CrowdsaleExpireJob) Execute() {
	logger.Debug("Starting crowdsale expire task")

	deadline := time.Now().Add(-model.SafeWithdrawalLockout)

	// 查找退款状态下锁定期已满的众筹
	var crowdsales []model.CrowdsaleModel
	err := j.db.Where("state = ? AND closing_time <= ?",
		model.CrowdsaleStateRefunding, deadline).Find(&crowdsales).Error
	if err != nil {
		logger.Error("Failed to fetch crowdsales for expiring: %v", err)
		return
	}

	for _, cs := range crowdsales {
		if err := j.crowdsaleLogic.SetExpiredAndWithdraw(cs.Owner, cs.Address); err != nil {
			logger.Error("Failed to expire crowdsale %d: %v", cs.Id, err)
			continue
		}
		logger.Info("Expired crowdsale %d, unclaimed funds swept", cs.Id)
	}
}
