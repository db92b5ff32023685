package models

import (
	"time"

	"gorm.io/datatypes"
)

// 内置策略名称
const (
	StrategyMomentum   = "momentum"
	StrategyContrarian = "contrarian"
	StrategyAllocation = "fixed_allocation"
	StrategyLLM        = "llm"
)

// Persona AI投资人配置，挂接在标记为自动交易的账户上，仅管理员可修改
type Persona struct {
	ID           string                       `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AccountID    string                       `gorm:"type:varchar(36);uniqueIndex;not null" json:"account_id"`
	Strategy     string                       `gorm:"size:32;not null" json:"strategy"`     // momentum/contrarian/fixed_allocation/llm
	Prompt       string                       `gorm:"type:text" json:"prompt"`              // 行为描述，仅llm策略消费
	Params       datatypes.JSONMap            `gorm:"type:json" json:"params"`              // 策略参数（如目标权重）
	CadenceTicks int                          `gorm:"not null;default:1" json:"cadence_ticks"` // 每隔多少个调度周期行动一次
	IsActive     bool                         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time                    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Persona) TableName() string {
	return "personas"
}

// ShouldAct 根据交易节奏判断本周期是否行动
func (p *Persona) ShouldAct(iteration int) bool {
	if p.CadenceTicks <= 1 {
		return true
	}
	return iteration%p.CadenceTicks == 0
}
