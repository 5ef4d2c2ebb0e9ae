package model

import (
	"time"
)

// DepositModel 退款托管记录，按贡献者累计存款
// 退款开启后提取会将金额清零
type DepositModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CrowdsaleId int64  `json:"crowdsale_id" gorm:"not null;uniqueIndex:idx_crowdsale_depositor"`
	Address     string `json:"address" gorm:"not null;uniqueIndex:idx_crowdsale_depositor"`
	Amount      BigInt `json:"amount"`
}

// TableName 自定义表名
func (DepositModel) TableName() string {
	return "deposit"
}
