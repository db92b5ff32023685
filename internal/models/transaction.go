package models

import (
	"time"
)

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"  // 买入
	OrderSideSell OrderSide = "SELL" // 卖出
)

// Valid 是否为合法方向
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Transaction 成交记录（只追加，写入后不可变更）
type Transaction struct {
	ID            string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	InstrumentID  string    `gorm:"type:varchar(36);not null;index" json:"instrument_id"`
	Side          OrderSide `gorm:"type:varchar(10);not null" json:"side"`               // BUY/SELL
	Shares        float64   `gorm:"type:decimal(20,8);not null" json:"shares"`           // 成交股数
	PricePerShare float64   `gorm:"type:decimal(20,8);not null" json:"price_per_share"`  // 成交时的快照价格
	TotalAmount   float64   `gorm:"type:decimal(20,8);not null" json:"total_amount"`     // 成交金额 = 股数 × 单价
	ExecutedAt    time.Time `gorm:"not null;index" json:"executed_at"`                   // 执行时间，审计顺序依据
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}
