package logic

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// EventLogic 事件业务逻辑
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// Append 在当前事务中追加一条事件记录
// 事务回滚时事件随之消失，保证事件只在提交点可见
func (e *EventLogic) Append(tx *gorm.DB, contract, eventType string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化事件数据失败: %w", err)
	}

	var seq int64
	if err := tx.Model(&model.EventModel{}).Count(&seq).Error; err != nil {
		return fmt.Errorf("查询事件序号失败: %w", err)
	}

	event := model.EventModel{
		ContractAddress: chain.Normalize(contract),
		EventType:       eventType,
		TxHash:          chain.TxHash(contract, eventType, seq, time.Now()),
		Data:            string(payload),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("写入事件失败: %w", err)
	}
	return nil
}

// GetEvents 按合约地址查询事件
func (e *EventLogic) GetEvents(contract string, eventType string, limit int) ([]model.EventModel, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := e.db.Order("id DESC").Limit(limit)
	if contract != "" {
		query = query.Where("contract_address = ?", chain.Normalize(contract))
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var events []model.EventModel
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	return events, nil
}

// GetUnprocessedEvents 查询未处理的事件，按提交顺序返回
func (e *EventLogic) GetUnprocessedEvents(limit int) ([]model.EventModel, error) {
	if limit <= 0 {
		limit = 100
	}

	var events []model.EventModel
	err := e.db.Where("processed = ?", false).Order("id ASC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("查询未处理事件失败: %w", err)
	}
	return events, nil
}

// MarkProcessed 标记事件已处理
func (e *EventLogic) MarkProcessed(eventId int64) error {
	return e.db.Model(&model.EventModel{}).Where("id = ?", eventId).Update("processed", true).Error
}
