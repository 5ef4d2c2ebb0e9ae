package model

import (
	"time"
)

// CrowdsaleModel 众筹轮次模型
type CrowdsaleModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 合约地址信息
	Address string `json:"address" gorm:"uniqueIndex;not null"`
	Owner   string `json:"owner" gorm:"not null"` // builder地址

	// 众筹参数
	Cap        BigInt `json:"cap" gorm:"not null"`
	Goal       BigInt `json:"goal" gorm:"not null"`
	Rate       int64  `json:"rate" gorm:"not null"` // 每wei铸造的代币数量
	Wallet     string `json:"wallet" gorm:"not null"`
	TokenId    int64  `json:"token_id" gorm:"not null"`
	CreatorSupply BigInt `json:"creator_supply"`

	// 时间窗口
	OpeningTime time.Time `json:"opening_time" gorm:"not null"`
	ClosingTime time.Time `json:"closing_time" gorm:"not null"`

	// 轮次链
	Round           int64 `json:"round" gorm:"not null;default:1"`
	PreviousRoundId int64 `json:"previous_round_id" gorm:"default:0"`
	NextRoundId     int64 `json:"next_round_id" gorm:"default:0"`

	// 平台费用
	FriendsFingersRatePerMille int64  `json:"friends_fingers_rate_per_mille"`
	FriendsFingersWallet       string `json:"friends_fingers_wallet" gorm:"not null"`

	// 描述信息（JSON字符串，服务端不解析）
	CrowdsaleInfo string `json:"crowdsale_info" gorm:"type:text"`

	// 状态
	State     CrowdsaleState `json:"state" gorm:"default:'active'"`
	Paused    bool           `json:"paused" gorm:"default:false"`
	WeiRaised BigInt         `json:"wei_raised"`

	// 创建者（整条轮次链共用）
	Creator string `json:"creator" gorm:"not null"`
}

// CrowdsaleState 众筹状态
type CrowdsaleState string

const (
	CrowdsaleStateActive    CrowdsaleState = "active"    // 进行中
	CrowdsaleStateRefunding CrowdsaleState = "refunding" // 退款中
	CrowdsaleStateClosed    CrowdsaleState = "closed"    // 已结束
	CrowdsaleStateBlocked   CrowdsaleState = "blocked"   // 已封禁
	CrowdsaleStateExpired   CrowdsaleState = "expired"   // 已过期
)

// MaxRounds 轮次链最大长度
const MaxRounds = 5

// MaxDuration 单轮最长持续时间
const MaxDuration = 30 * 24 * time.Hour

// SafeWithdrawalLockout 紧急提款锁定期
const SafeWithdrawalLockout = 365 * 24 * time.Hour

// TableName 自定义表名
func (CrowdsaleModel) TableName() string {
	return "crowdsale"
}
