package config

type Config struct {
	Trading TradingConf `json:"trading"`
	Quotes  QuotesConf  `json:"quotes"`
	SSO     SSOConf     `json:"sso"`
	LLM     LlmConf     `json:"llm"`
}

type TradingConf struct {
	StartingCash    float64          `json:"starting_cash"`    // 新账户初始资金，默认1000000
	IntervalMinutes int              `json:"interval_minutes"` // AI调度周期（分钟），默认10
	MaxOrderRetries int              `json:"max_order_retries"` // 写冲突重试次数，默认3
	Instruments     []InstrumentConf `json:"instruments"`      // 可交易标的列表
	Personas        []PersonaConf    `json:"personas"`         // AI投资人初始配置
}

type InstrumentConf struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ticker string `json:"ticker"` // 为空时使用固定合成价
}

type PersonaConf struct {
	Nickname     string             `json:"nickname"`
	Strategy     string             `json:"strategy"`      // momentum/contrarian/fixed_allocation/llm
	Prompt       string             `json:"prompt"`        // 行为描述，仅llm策略消费
	CadenceTicks int                `json:"cadence_ticks"` // 每隔多少个周期行动一次
	Params       map[string]float64 `json:"params"`        // 策略参数，如目标权重
}

type QuotesConf struct {
	BaseURL        string  `json:"base_url"`        // 行情服务基础URL
	RefreshMinutes int     `json:"refresh_minutes"` // 报价刷新周期（分钟），默认5
	FallbackPrice  float64 `json:"fallback_price"`  // 无报价时的兜底价格，默认100
	RateLimit      float64 `json:"rate_limit"`      // 每秒请求数
	RateLimitBurst int     `json:"rate_limit_burst"`
}

type SSOConf struct {
	BaseURL string `json:"base_url"` // 单点登录校验服务地址
}

type LlmConf struct {
	BaseURL  string `json:"base_url"`  // LLM API基础URL
	APIKey   string `json:"api_key"`   // LLM API密钥
	Model    string `json:"model"`     // 模型名称
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
}

// Normalize 补齐缺省配置
func (c *Config) Normalize() {
	if c.Trading.StartingCash <= 0 {
		c.Trading.StartingCash = 1000000
	}
	if c.Trading.IntervalMinutes <= 0 {
		c.Trading.IntervalMinutes = 10
	}
	if c.Trading.MaxOrderRetries <= 0 {
		c.Trading.MaxOrderRetries = 3
	}
	if c.Quotes.RefreshMinutes <= 0 {
		c.Quotes.RefreshMinutes = 5
	}
	if c.Quotes.FallbackPrice <= 0 {
		c.Quotes.FallbackPrice = 100
	}
	if c.Quotes.RateLimit <= 0 {
		c.Quotes.RateLimit = 10
	}
	if c.Quotes.RateLimitBurst <= 0 {
		c.Quotes.RateLimitBurst = 5
	}
}
