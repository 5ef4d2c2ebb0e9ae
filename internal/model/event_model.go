package model

import (
	"time"
)

// EventModel 事件记录，提交时追加，不可修改
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractAddress string `json:"contract_address" gorm:"not null;index"`
	EventType       string `json:"event_type" gorm:"not null"`
	TxHash          string `json:"tx_hash" gorm:"uniqueIndex;not null"`
	Data            string `json:"data" gorm:"type:text"`
	Processed       bool   `json:"processed" gorm:"default:false"`
}

// 事件类型
const (
	EventTypeTokenPurchase    = "TokenPurchase"
	EventTypeFinalized        = "Finalized"
	EventTypeCrowdsaleStarted = "CrowdsaleStarted"
)

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
