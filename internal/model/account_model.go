package model

import (
	"time"
)

// AccountModel wei账本模型，记录合约、钱包与贡献者的余额
type AccountModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address string `json:"address" gorm:"uniqueIndex;not null"`
	Balance BigInt `json:"balance"`
}

// TableName 自定义表名
func (AccountModel) TableName() string {
	return "account"
}
