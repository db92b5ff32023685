package service

import (
	"context"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/xe"
	"github.com/dushixiang/simvest/pkg/ta"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// DecisionAction AI决策动作
type DecisionAction string

const (
	ActionBuy  DecisionAction = "BUY"
	ActionSell DecisionAction = "SELL"
	ActionHold DecisionAction = "HOLD"
)

// Decision 一次AI决策。非HOLD决策经由交易执行器落地，与真人订单同路径。
type Decision struct {
	Action       DecisionAction `json:"action"`
	InstrumentID string         `json:"instrument_id,omitempty"`
	Shares       float64        `json:"shares,omitempty"`
	Reason       string         `json:"reason,omitempty"`
}

// HoldDecision 观望决策
func HoldDecision(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason}
}

// StrategyInput 策略决策所需的上下文
type StrategyInput struct {
	Persona     *models.Persona
	Account     *models.Account
	Valuation   *Valuation
	Instruments []models.Instrument
	Quotes      PriceSource
}

// Strategy 可插拔的AI交易策略
type Strategy interface {
	Name() string
	Decide(ctx context.Context, input *StrategyInput) (Decision, error)
}

// StrategyRegistry 策略注册表
type StrategyRegistry struct {
	strategies map[string]Strategy
}

// NewStrategyRegistry 创建策略注册表。llm 策略仅在LLM客户端可用时注册。
func NewStrategyRegistry(llm *LLMStrategy, logger *zap.Logger) *StrategyRegistry {
	registry := &StrategyRegistry{
		strategies: make(map[string]Strategy),
	}

	for _, strategy := range []Strategy{
		&MomentumStrategy{},
		&ContrarianStrategy{},
		&FixedAllocationStrategy{},
	} {
		registry.strategies[strategy.Name()] = strategy
	}

	if llm != nil {
		registry.strategies[llm.Name()] = llm
	} else {
		logger.Warn("LLM client not configured, llm strategy disabled")
	}

	return registry
}

// Lookup 按名称查找策略
func (r *StrategyRegistry) Lookup(name string) (Strategy, error) {
	strategy, ok := r.strategies[name]
	if !ok {
		return nil, xe.ErrUnknownStrategy
	}
	return strategy, nil
}

// paramOr 读取策略参数，键未配置时返回默认值。显式配置的零值生效。
func paramOr(persona *models.Persona, key string, def float64) float64 {
	if persona == nil || persona.Params == nil {
		return def
	}
	value, ok := persona.Params[key]
	if !ok {
		return def
	}
	return cast.ToFloat64(value)
}

const (
	rsiPeriod     = 14
	emaFastPeriod = 10
	emaSlowPeriod = 21
	changePeriod  = 5
)

// MomentumStrategy 动量策略：追强势，弃弱势。
// 先清仓RSI跌破卖出线或快慢均线死叉的持仓，否则买入RSI最强且趋势确认的标的。
type MomentumStrategy struct{}

func (MomentumStrategy) Name() string { return models.StrategyMomentum }

func (MomentumStrategy) Decide(ctx context.Context, input *StrategyInput) (Decision, error) {
	buyLine := paramOr(input.Persona, "rsi_buy", 60)
	sellLine := paramOr(input.Persona, "rsi_sell", 40)
	cashFraction := paramOr(input.Persona, "cash_fraction", 0.1)

	rsiByInstrument := latestRSI(input)
	if len(rsiByInstrument) == 0 {
		return HoldDecision("行情历史不足"), nil
	}

	// 先处理走弱或均线破位的持仓
	for _, holding := range input.Valuation.Holdings {
		rsi, ok := rsiByInstrument[holding.InstrumentID]
		if !ok {
			continue
		}
		weak := rsi <= sellLine
		if !weak {
			if fast, slow, ok := emaPair(input, holding.InstrumentID); ok && ta.Crossunder(fast, slow) {
				weak = true
			}
		}
		if weak {
			return Decision{
				Action:       ActionSell,
				InstrumentID: holding.InstrumentID,
				Shares:       holding.Shares,
				Reason:       "动量走弱，清仓离场",
			}, nil
		}
	}

	// 买入最强势且趋势确认的标的
	bestID := ""
	bestRSI := buyLine
	for instrumentID, rsi := range rsiByInstrument {
		if rsi <= bestRSI {
			continue
		}
		if fast, slow, ok := emaPair(input, instrumentID); ok {
			history := input.Quotes.PriceHistory(instrumentID)
			if ta.Last(history, 0) <= ta.Last(slow, 0) && !ta.Crossover(fast, slow) {
				continue
			}
		}
		bestRSI = rsi
		bestID = instrumentID
	}
	if bestID == "" {
		return HoldDecision("无标的满足买入条件"), nil
	}

	budget := input.Valuation.Cash * cashFraction
	price := input.Quotes.GetPrice(bestID)
	if budget <= 0 || price <= 0 {
		return HoldDecision("可用资金不足"), nil
	}

	return Decision{
		Action:       ActionBuy,
		InstrumentID: bestID,
		Shares:       budget / price,
		Reason:       "动量走强，顺势买入",
	}, nil
}

// ContrarianStrategy 逆势策略：跌深买入，涨高卖出
type ContrarianStrategy struct{}

func (ContrarianStrategy) Name() string { return models.StrategyContrarian }

func (ContrarianStrategy) Decide(ctx context.Context, input *StrategyInput) (Decision, error) {
	buyLine := paramOr(input.Persona, "rsi_buy", 35)
	sellLine := paramOr(input.Persona, "rsi_sell", 65)
	cashFraction := paramOr(input.Persona, "cash_fraction", 0.1)

	rsiByInstrument := latestRSI(input)
	if len(rsiByInstrument) == 0 {
		return HoldDecision("行情历史不足"), nil
	}

	// 持仓涨高先兑现
	for _, holding := range input.Valuation.Holdings {
		rsi, ok := rsiByInstrument[holding.InstrumentID]
		if ok && rsi >= sellLine {
			return Decision{
				Action:       ActionSell,
				InstrumentID: holding.InstrumentID,
				Shares:       holding.Shares,
				Reason:       "超买兑现",
			}, nil
		}
	}

	// 买入超卖最深且近期确在回落的标的
	bestID := ""
	bestRSI := buyLine
	for instrumentID, rsi := range rsiByInstrument {
		if rsi >= bestRSI {
			continue
		}
		if ta.Change(input.Quotes.PriceHistory(instrumentID), changePeriod) >= 0 {
			continue
		}
		bestRSI = rsi
		bestID = instrumentID
	}
	if bestID == "" {
		return HoldDecision("无标的跌破买入线"), nil
	}

	budget := input.Valuation.Cash * cashFraction
	price := input.Quotes.GetPrice(bestID)
	if budget <= 0 || price <= 0 {
		return HoldDecision("可用资金不足"), nil
	}

	return Decision{
		Action:       ActionBuy,
		InstrumentID: bestID,
		Shares:       budget / price,
		Reason:       "超卖抄底",
	}, nil
}

// emaPair 计算标的的快慢EMA序列，历史不足以覆盖慢线周期时返回 false
func emaPair(input *StrategyInput, instrumentID string) ([]float64, []float64, bool) {
	history := input.Quotes.PriceHistory(instrumentID)
	if len(history) <= emaSlowPeriod+1 {
		return nil, nil, false
	}
	return ta.EMA(history, emaFastPeriod), ta.EMA(history, emaSlowPeriod), true
}

// latestRSI 计算每个标的基于缓存报价历史的最新RSI值
func latestRSI(input *StrategyInput) map[string]float64 {
	result := make(map[string]float64)
	for _, instrument := range input.Instruments {
		history := input.Quotes.PriceHistory(instrument.ID)
		if len(history) <= rsiPeriod {
			continue
		}
		series := ta.RSI(history, rsiPeriod)
		result[instrument.ID] = ta.Last(series, 0)
	}
	return result
}

// FixedAllocationStrategy 固定配置策略：把组合向目标权重再平衡。
// Params 中以标的ID为键给出目标权重，偏离超过容忍度时买入最欠配或卖出最超配的标的。
type FixedAllocationStrategy struct{}

func (FixedAllocationStrategy) Name() string { return models.StrategyAllocation }

func (FixedAllocationStrategy) Decide(ctx context.Context, input *StrategyInput) (Decision, error) {
	if input.Persona == nil || len(input.Persona.Params) == 0 {
		return HoldDecision("未配置目标权重"), nil
	}

	total := input.Valuation.TotalValue
	if total <= 0 {
		return HoldDecision("账户净值为零"), nil
	}
	tolerance := paramOr(input.Persona, "tolerance", 0.05)

	currentValue := make(map[string]float64, len(input.Valuation.Holdings))
	currentShares := make(map[string]float64, len(input.Valuation.Holdings))
	for _, holding := range input.Valuation.Holdings {
		currentValue[holding.InstrumentID] = holding.MarketValue
		currentShares[holding.InstrumentID] = holding.Shares
	}

	worstID := ""
	worstDeviation := 0.0
	for key, raw := range input.Persona.Params {
		if key == "tolerance" {
			continue
		}
		target := cast.ToFloat64(raw)
		if target <= 0 {
			continue
		}
		deviation := currentValue[key]/total - target
		if abs(deviation) <= tolerance {
			continue
		}
		if worstID == "" || abs(deviation) > abs(worstDeviation) {
			worstID = key
			worstDeviation = deviation
		}
	}
	if worstID == "" {
		return HoldDecision("组合在目标权重容忍范围内"), nil
	}

	price := input.Quotes.GetPrice(worstID)
	if price <= 0 {
		return HoldDecision("标的无有效报价"), nil
	}
	amount := abs(worstDeviation) * total
	shares := amount / price

	if worstDeviation < 0 {
		// 欠配，补足到目标权重
		if input.Valuation.Cash < amount {
			shares = input.Valuation.Cash / price
		}
		if shares <= 0 {
			return HoldDecision("可用资金不足"), nil
		}
		return Decision{
			Action:       ActionBuy,
			InstrumentID: worstID,
			Shares:       shares,
			Reason:       "再平衡补仓",
		}, nil
	}

	// 超配，减回目标权重
	if held := currentShares[worstID]; shares > held {
		shares = held
	}
	if shares <= 0 {
		return HoldDecision("无可卖持仓"), nil
	}
	return Decision{
		Action:       ActionSell,
		InstrumentID: worstID,
		Shares:       shares,
		Reason:       "再平衡减仓",
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
