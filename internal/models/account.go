package models

import (
	"time"
)

// Account 参与者账户（真人或AI机器人）
type Account struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email         string    `gorm:"size:255;index" json:"email"`
	Nickname      string    `gorm:"size:100" json:"nickname"`                           // 昵称（排行榜展示用）
	CashAvailable float64   `gorm:"type:decimal(20,8);not null" json:"cash_available"`  // 可用资金，任何操作不得使其为负
	CashDeposited float64   `gorm:"type:decimal(20,8);not null" json:"cash_deposited"`  // 累计注入资金（单调递增，用于盈亏统计）
	IsBot         bool      `gorm:"not null;default:false;index" json:"is_bot"`         // 是否为AI自动交易账户
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}
