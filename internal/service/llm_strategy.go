package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/pkg/ta"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
)

//go:embed templates/system_instructions.txt
var systemInstructionsTemplate string

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// LLMStrategy 大模型策略：把人设提示词、账户与行情快照交给LLM，解析其JSON决策。
// 决策只是建议，份额与资金校验仍由交易执行器兜底。
type LLMStrategy struct {
	logger *zap.Logger
	client *openai.Client
	model  string
}

// NewLLMStrategy 创建LLM策略。未配置客户端时返回nil，此时注册表跳过llm策略。
func NewLLMStrategy(client *openai.Client, model string, logger *zap.Logger) *LLMStrategy {
	if client == nil || model == "" {
		return nil
	}
	return &LLMStrategy{
		logger: logger,
		client: client,
		model:  model,
	}
}

func (s *LLMStrategy) Name() string { return models.StrategyLLM }

func (s *LLMStrategy) Decide(ctx context.Context, input *StrategyInput) (Decision, error) {
	systemInstructions := s.buildSystemInstructions(input.Persona)
	prompt := s.buildPrompt(input)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return HoldDecision("模型无输出"), nil
	}

	content := resp.Choices[0].Message.Content
	s.logger.Debug("LLM decision received",
		zap.String("account_id", input.Persona.AccountID),
		zap.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		zap.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	decision, err := parseDecision(content)
	if err != nil {
		s.logger.Warn("unparsable LLM decision, holding",
			zap.String("account_id", input.Persona.AccountID),
			zap.String("content", content),
			zap.Error(err))
		return HoldDecision("模型输出无法解析"), nil
	}
	return decision, nil
}

// buildSystemInstructions 渲染系统指令，注入人设提示词
func (s *LLMStrategy) buildSystemInstructions(persona *models.Persona) string {
	prompt := ""
	if persona != nil {
		prompt = persona.Prompt
	}
	tmpl := fasttemplate.New(systemInstructionsTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"persona_prompt": prompt,
	})
}

// buildPrompt 生成本次决策的账户与行情快照
func (s *LLMStrategy) buildPrompt(input *StrategyInput) string {
	var sb strings.Builder

	sb.WriteString("## 账户状态\n\n")
	sb.WriteString(fmt.Sprintf("- 可用现金: $%.2f\n", input.Valuation.Cash))
	sb.WriteString(fmt.Sprintf("- 账户净值: $%.2f\n", input.Valuation.TotalValue))
	sb.WriteString(fmt.Sprintf("- 累计盈亏: $%.2f\n\n", input.Valuation.GainLoss))

	sb.WriteString("## 当前持仓\n\n")
	if len(input.Valuation.Holdings) == 0 {
		sb.WriteString("当前无持仓\n\n")
	} else {
		for _, holding := range input.Valuation.Holdings {
			sb.WriteString(fmt.Sprintf("- %s (%s): %.4f 份, 成本 $%.2f, 现价 $%.2f, 市值 $%.2f\n",
				holding.Name, holding.InstrumentID, holding.Shares,
				holding.CostBasis, holding.MarkPrice, holding.MarketValue))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## 可交易标的与最近报价\n\n")
	for _, instrument := range input.Instruments {
		price := input.Quotes.GetPrice(instrument.ID)
		history := input.Quotes.PriceHistory(instrument.ID)
		sb.WriteString(fmt.Sprintf("- %s (%s): 现价 $%.2f, 近期序列 %s\n",
			instrument.Name, instrument.ID, price, formatPriceSeries(history, 10)))
		if len(history) > macdSlowPeriod+macdSignalPeriod {
			macdLine, signalLine, histLine := ta.MACD(history, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
			rsiLine := ta.RSI(history, rsiPeriod)
			sb.WriteString(fmt.Sprintf("  技术指标: RSI %.1f, MACD %.3f / 信号线 %.3f / 柱 %.3f\n",
				ta.Last(rsiLine, 0), ta.Last(macdLine, 0), ta.Last(signalLine, 0), ta.Last(histLine, 0)))
		}
	}
	sb.WriteString("\n请根据角色人设给出本轮决策。")

	return sb.String()
}

// parseDecision 从模型输出中提取JSON决策。容忍代码块包裹和前后缀文字。
func parseDecision(content string) (Decision, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("no JSON object in response")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(content[start:end+1]), &decision); err != nil {
		return Decision{}, err
	}

	switch decision.Action {
	case ActionBuy, ActionSell:
		if decision.InstrumentID == "" || decision.Shares <= 0 {
			return Decision{}, fmt.Errorf("incomplete %s decision", decision.Action)
		}
	case ActionHold:
	default:
		return Decision{}, fmt.Errorf("unknown action: %s", decision.Action)
	}
	return decision, nil
}

// formatPriceSeries 格式化价格序列的尾部片段
func formatPriceSeries(series []float64, limit int) string {
	if len(series) == 0 {
		return "[]"
	}
	series = ta.LastValues(series, limit)
	strs := make([]string, len(series))
	for i, v := range series {
		strs[i] = fmt.Sprintf("%.2f", v)
	}
	return "[" + strings.Join(strs, ", ") + "]"
}
