package models

import (
	"time"
)

// NetWorthHistory 账户净值快照，每个调度周期结束后记录，用于资金曲线
type NetWorthHistory struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Cash          float64   `gorm:"type:decimal(20,8)" json:"cash"`           // 可用资金
	HoldingsValue float64   `gorm:"type:decimal(20,8)" json:"holdings_value"` // 持仓市值
	TotalValue    float64   `gorm:"type:decimal(20,8)" json:"total_value"`    // 总净值
	Iteration     int       `gorm:"type:int;index" json:"iteration"`          // 调度周期数
	RecordedAt    time.Time `gorm:"not null;index" json:"recorded_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (NetWorthHistory) TableName() string {
	return "net_worth_histories"
}
