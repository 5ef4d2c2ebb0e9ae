package model

import (
	"time"
)

// TokenModel 代币模型
type TokenModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address  string `json:"address" gorm:"uniqueIndex;not null"`
	Name     string `json:"name" gorm:"not null"`
	Symbol   string `json:"symbol" gorm:"not null"`
	Decimals uint8  `json:"decimals" gorm:"not null"`

	// 所有权与铸币开关
	Owner           string `json:"owner" gorm:"not null"`
	MintingFinished bool   `json:"minting_finished" gorm:"default:false"`

	TotalSupply BigInt `json:"total_supply"`
}

// TableName 自定义表名
func (TokenModel) TableName() string {
	return "token"
}

// TokenBalanceModel 代币余额模型
type TokenBalanceModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TokenId int64  `json:"token_id" gorm:"not null;uniqueIndex:idx_token_holder"`
	Address string `json:"address" gorm:"not null;uniqueIndex:idx_token_holder"`
	Amount  BigInt `json:"amount"`
}

// TableName 自定义表名
func (TokenBalanceModel) TableName() string {
	return "token_balance"
}
