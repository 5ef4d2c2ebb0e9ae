package model

import (
	"time"
)

// BuilderModel 平台配置，单行记录
type BuilderModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address string `json:"address" gorm:"uniqueIndex;not null"`
	Owner   string `json:"owner" gorm:"not null"`

	FriendsFingersWallet       string `json:"friends_fingers_wallet" gorm:"not null"`
	FriendsFingersRatePerMille int64  `json:"friends_fingers_rate_per_mille"`

	Paused         bool  `json:"paused" gorm:"default:false"`
	CrowdsaleCount int64 `json:"crowdsale_count" gorm:"default:0"`
}

// TableName 自定义表名
func (BuilderModel) TableName() string {
	return "builder"
}

// EnabledAddressModel 授权管理地址
type EnabledAddressModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address string `json:"address" gorm:"uniqueIndex;not null"`
	Enabled bool   `json:"enabled" gorm:"default:false"`
}

// TableName 自定义表名
func (EnabledAddressModel) TableName() string {
	return "enabled_address"
}
