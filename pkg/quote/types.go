package quote

import "context"

// Provider 外部行情提供方。实现方负责自身的限流与重试，
// 单个标的的失败不应影响其它标的的刷新。
type Provider interface {
	// FetchPrice 获取单个行情代码的最新价格
	FetchPrice(ctx context.Context, ticker string) (float64, error)
}

// Quote 行情快照
type Quote struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}
