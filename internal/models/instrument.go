package models

import (
	"time"
)

// Instrument 可交易标的。Ticker 为空时表示无真实行情对应，
// 价格固定为合成价，由报价缓存维护。
type Instrument struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Ticker    string    `gorm:"size:16;index" json:"ticker"`
	MarkPrice float64   `gorm:"type:decimal(20,8)" json:"mark_price"` // 最新标记价格，由报价刷新独立更新
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Instrument) TableName() string {
	return "instruments"
}

// HasTicker 是否存在真实行情代码
func (i *Instrument) HasTicker() bool {
	return i.Ticker != ""
}
