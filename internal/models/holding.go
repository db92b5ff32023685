package models

import (
	"time"
)

// Holding 用户在单一标的上的持仓（存在即 shares_owned > 0，清仓时整行删除）
type Holding struct {
	UserID        string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	InstrumentID  string    `gorm:"primaryKey;type:varchar(36)" json:"instrument_id"`
	SharesOwned   float64   `gorm:"type:decimal(20,8);not null" json:"shares_owned"`   // 持有股数（允许小数）
	TotalInvested float64   `gorm:"type:decimal(20,8);not null" json:"total_invested"` // 累计成本（卖出时按比例扣减）
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Holding) TableName() string {
	return "holdings"
}

// AverageCost 平均持仓成本
func (h *Holding) AverageCost() float64 {
	if h.SharesOwned == 0 {
		return 0
	}
	return h.TotalInvested / h.SharesOwned
}
