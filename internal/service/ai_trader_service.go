package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/repo"
	"github.com/dushixiang/simvest/internal/xe"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AITraderService AI投资人调度器。按固定周期唤醒所有启用中的AI投资人，
// 逐个执行其策略决策，并把非观望决策交给交易执行器落地。
// AI订单与真人订单走同一条校验与落账路径，没有任何旁路。
type AITraderService struct {
	logger *zap.Logger
	conf   config.TradingConf

	personaRepo    *repo.PersonaRepo
	instrumentRepo *repo.InstrumentRepo
	historyRepo    *repo.NetWorthHistoryRepo

	portfolioService *PortfolioService
	tradeService     *TradeService
	registry         *StrategyRegistry
	quotes           PriceSource

	mu         sync.Mutex
	startTime  time.Time
	iteration  int
	lastWindow time.Time
	isRunning  bool
	stopChan   chan struct{}
	cron       *cron.Cron
	cancel     context.CancelFunc
}

// NewAITraderService 创建AI投资人调度器
func NewAITraderService(
	db *gorm.DB,
	portfolioService *PortfolioService,
	tradeService *TradeService,
	registry *StrategyRegistry,
	quotes PriceSource,
	conf *config.Config,
	logger *zap.Logger,
) *AITraderService {
	return &AITraderService{
		logger:           logger,
		conf:             conf.Trading,
		personaRepo:      repo.NewPersonaRepo(db),
		instrumentRepo:   repo.NewInstrumentRepo(db),
		historyRepo:      repo.NewNetWorthHistoryRepo(db),
		portfolioService: portfolioService,
		tradeService:     tradeService,
		registry:         registry,
		quotes:           quotes,
		startTime:        time.Now(),
	}
}

// PersonaOutcome 单个AI投资人在一个调度周期内的执行结果
type PersonaOutcome struct {
	AccountID    string  `json:"account_id"`
	Nickname     string  `json:"nickname"`
	Action       string  `json:"action"`
	InstrumentID string  `json:"instrument_id,omitempty"`
	Shares       float64 `json:"shares,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Outcome      string  `json:"outcome"` // executed/held/skipped/failed
	Error        string  `json:"error,omitempty"`
}

// Start 启动调度循环，阻塞直到 Stop 或 ctx 取消
func (t *AITraderService) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("ai trader is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.stopChan = make(chan struct{})
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	// 重启后从净值历史恢复周期计数，避免交易节奏错位
	if lastIteration, err := t.historyRepo.FindLatestIteration(ctx); err != nil {
		t.logger.Warn("failed to load latest iteration, fallback to 0", zap.Error(err))
	} else if lastIteration > 0 {
		t.mu.Lock()
		t.iteration = lastIteration
		t.mu.Unlock()
		t.logger.Info("resume iteration counter from history", zap.Int("iteration", lastIteration))
	}

	// 每 N 分钟的整点执行，例如 interval=10: 每小时的 0, 10, 20... 分
	cronExpr := fmt.Sprintf("*/%d * * * *", t.conf.IntervalMinutes)

	t.logger.Info("ai trader started",
		zap.Int("interval_minutes", t.conf.IntervalMinutes),
		zap.String("cron_expression", cronExpr))

	t.cron = cron.New()
	_, err := t.cron.AddFunc(cronExpr, func() {
		if _, err := t.RunTick(context.Background()); err != nil {
			t.logger.Error("tick execution failed", zap.Error(err))
		}
	})
	if err != nil {
		t.mu.Lock()
		t.isRunning = false
		t.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	// 立即执行第一个周期
	go func() {
		if _, err := t.RunTick(context.Background()); err != nil {
			t.logger.Error("first tick execution failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
		t.logger.Info("ai trader stopped by user")
		return nil
	case <-ctx.Done():
		t.logger.Info("ai trader stopped by context")
		return ctx.Err()
	}
}

// Stop 停止调度循环
func (t *AITraderService) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	cronScheduler := t.cron
	cancel := t.cancel
	stopChan := t.stopChan
	t.mu.Unlock()

	t.logger.Info("stopping ai trader...")

	if cronScheduler != nil {
		stopCtx := cronScheduler.Stop()
		<-stopCtx.Done() // 等待进行中的周期结束
	}
	if cancel != nil {
		cancel()
	}
	close(stopChan)

	t.logger.Info("ai trader stopped")
}

// RunTick 执行一个完整的调度周期。同一个周期窗口只执行一次：
// cron触发与手动触发落在同一窗口时，后到者直接跳过，保证AI投资人不会双倍交易。
func (t *AITraderService) RunTick(ctx context.Context) ([]PersonaOutcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	interval := time.Duration(t.conf.IntervalMinutes) * time.Minute
	window := time.Now().Truncate(interval)
	if !t.lastWindow.Before(window) {
		t.logger.Info("tick window already executed, skipping",
			zap.Time("window", window))
		return nil, nil
	}
	t.lastWindow = window
	t.iteration++

	tickStart := time.Now()
	t.logger.Info("tick started", zap.Int("iteration", t.iteration))

	personas, err := t.personaRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active personas: %w", err)
	}
	instruments, err := t.instrumentRepo.FindAllOrderByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	outcomes := make([]PersonaOutcome, 0, len(personas))
	for i := range personas {
		outcome := t.runPersona(ctx, &personas[i], instruments)
		outcomes = append(outcomes, outcome)
	}

	t.logger.Info("tick completed",
		zap.Int("iteration", t.iteration),
		zap.Int("personas", len(personas)),
		zap.Duration("duration", time.Since(tickStart)))

	return outcomes, nil
}

// runPersona 执行单个AI投资人的决策与落账。任何一步失败都只影响该投资人，
// 记入结果后继续处理下一个。
func (t *AITraderService) runPersona(ctx context.Context, persona *models.Persona, instruments []models.Instrument) PersonaOutcome {
	outcome := PersonaOutcome{AccountID: persona.AccountID}

	account, err := t.portfolioService.AccountRepo.FindById(ctx, persona.AccountID)
	if err != nil {
		t.logger.Error("persona account missing",
			zap.String("account_id", persona.AccountID),
			zap.Error(err))
		outcome.Outcome = "failed"
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Nickname = account.Nickname

	if !persona.ShouldAct(t.iteration) {
		outcome.Outcome = "skipped"
		outcome.Reason = "未到交易节奏窗口"
		return outcome
	}

	strategy, err := t.registry.Lookup(persona.Strategy)
	if err != nil {
		t.logger.Error("persona strategy unavailable",
			zap.String("account_id", persona.AccountID),
			zap.String("strategy", persona.Strategy))
		outcome.Outcome = "failed"
		outcome.Error = err.Error()
		return outcome
	}

	valuation, err := t.portfolioService.Valuate(ctx, persona.AccountID)
	if err != nil {
		outcome.Outcome = "failed"
		outcome.Error = err.Error()
		return outcome
	}

	decision, err := strategy.Decide(ctx, &StrategyInput{
		Persona:     persona,
		Account:     &account,
		Valuation:   valuation,
		Instruments: instruments,
		Quotes:      t.quotes,
	})
	if err != nil {
		t.logger.Error("strategy decision failed",
			zap.String("account_id", persona.AccountID),
			zap.String("strategy", persona.Strategy),
			zap.Error(err))
		outcome.Outcome = "failed"
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Action = string(decision.Action)
	outcome.InstrumentID = decision.InstrumentID
	outcome.Shares = decision.Shares
	outcome.Reason = decision.Reason

	if decision.Action == ActionHold {
		outcome.Outcome = "held"
	} else {
		side := models.OrderSideBuy
		if decision.Action == ActionSell {
			side = models.OrderSideSell
		}

		if _, err := t.tradeService.ExecuteOrder(ctx, persona.AccountID, decision.InstrumentID, side, decision.Shares); err != nil {
			// 策略给出的份额可能超出资金或持仓，执行器拒单即为最终结果
			t.logger.Warn("persona order rejected",
				zap.String("account_id", persona.AccountID),
				zap.String("instrument_id", decision.InstrumentID),
				zap.String("action", outcome.Action),
				zap.Float64("shares", decision.Shares),
				zap.Error(err))
			outcome.Outcome = "failed"
			outcome.Error = err.Error()
		} else {
			outcome.Outcome = "executed"
			t.logger.Info("persona order executed",
				zap.String("account_id", persona.AccountID),
				zap.String("nickname", account.Nickname),
				zap.String("instrument_id", decision.InstrumentID),
				zap.String("action", outcome.Action),
				zap.Float64("shares", decision.Shares))
		}
	}

	if err := t.portfolioService.SaveSnapshot(ctx, persona.AccountID, t.iteration); err != nil {
		t.logger.Warn("failed to save net worth snapshot",
			zap.String("account_id", persona.AccountID),
			zap.Error(err))
	}

	return outcome
}

// IsRunning 检查调度循环是否在运行
func (t *AITraderService) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// GetStatus 获取调度器状态
func (t *AITraderService) GetStatus(ctx context.Context) map[string]interface{} {
	personas, err := t.personaRepo.FindActive(ctx)
	if err != nil {
		t.logger.Warn("failed to count active personas", zap.Error(err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]interface{}{
		"is_running":       t.isRunning,
		"iteration":        t.iteration,
		"start_time":       t.startTime,
		"elapsed_hours":    time.Since(t.startTime).Hours(),
		"interval_minutes": t.conf.IntervalMinutes,
		"active_personas":  len(personas),
	}
}

// PersonaView AI投资人配置视图，带账户昵称
type PersonaView struct {
	models.Persona
	Nickname string `json:"nickname"`
}

// ListPersonas 获取全部AI投资人配置
func (t *AITraderService) ListPersonas(ctx context.Context) ([]PersonaView, error) {
	personas, err := t.personaRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]PersonaView, 0, len(personas))
	for _, persona := range personas {
		view := PersonaView{Persona: persona}
		if account, err := t.portfolioService.AccountRepo.FindById(ctx, persona.AccountID); err == nil {
			view.Nickname = account.Nickname
		}
		views = append(views, view)
	}
	return views, nil
}

// PersonaUpdate AI投资人配置变更
type PersonaUpdate struct {
	Strategy     *string            `json:"strategy"`
	Prompt       *string            `json:"prompt"`
	Params       map[string]float64 `json:"params"`
	CadenceTicks *int               `json:"cadence_ticks"`
	IsActive     *bool              `json:"is_active"`
}

// UpdatePersona 修改AI投资人配置，nil字段保持不变
func (t *AITraderService) UpdatePersona(ctx context.Context, id string, update PersonaUpdate) (*models.Persona, error) {
	persona, err := t.personaRepo.FindById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrPersonaNotFound
		}
		return nil, err
	}

	if update.Strategy != nil {
		if _, err := t.registry.Lookup(*update.Strategy); err != nil {
			return nil, err
		}
		persona.Strategy = *update.Strategy
	}
	if update.Prompt != nil {
		persona.Prompt = *update.Prompt
	}
	if update.Params != nil {
		params := make(datatypes.JSONMap, len(update.Params))
		for key, value := range update.Params {
			params[key] = value
		}
		persona.Params = params
	}
	if update.CadenceTicks != nil && *update.CadenceTicks > 0 {
		persona.CadenceTicks = *update.CadenceTicks
	}
	if update.IsActive != nil {
		persona.IsActive = *update.IsActive
	}

	if err := t.personaRepo.Save(ctx, &persona); err != nil {
		return nil, err
	}
	return &persona, nil
}

// SeedPersonas 按配置初始化AI投资人。以昵称为幂等键，已存在的投资人不重复创建。
func (t *AITraderService) SeedPersonas(ctx context.Context, confs []config.PersonaConf) error {
	if len(confs) == 0 {
		return nil
	}

	existing, err := t.personaRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	seeded := make(map[string]bool, len(existing))
	for _, persona := range existing {
		account, err := t.portfolioService.AccountRepo.FindById(ctx, persona.AccountID)
		if err != nil {
			continue
		}
		seeded[account.Nickname] = true
	}

	for _, conf := range confs {
		if seeded[conf.Nickname] {
			continue
		}
		if _, err := t.registry.Lookup(conf.Strategy); err != nil {
			t.logger.Warn("skipping persona with unavailable strategy",
				zap.String("nickname", conf.Nickname),
				zap.String("strategy", conf.Strategy))
			continue
		}

		account, err := t.portfolioService.CreateBotAccount(ctx, conf.Nickname)
		if err != nil {
			return fmt.Errorf("failed to create bot account for %s: %w", conf.Nickname, err)
		}

		params := make(datatypes.JSONMap, len(conf.Params))
		for key, value := range conf.Params {
			params[key] = value
		}
		cadence := conf.CadenceTicks
		if cadence <= 0 {
			cadence = 1
		}

		persona := &models.Persona{
			ID:           ulid.Make().String(),
			AccountID:    account.ID,
			Strategy:     conf.Strategy,
			Prompt:       conf.Prompt,
			Params:       params,
			CadenceTicks: cadence,
			IsActive:     true,
		}
		if err := t.personaRepo.Create(ctx, persona); err != nil {
			return fmt.Errorf("failed to create persona for %s: %w", conf.Nickname, err)
		}

		t.logger.Info("persona seeded",
			zap.String("nickname", conf.Nickname),
			zap.String("strategy", conf.Strategy),
			zap.String("account_id", account.ID))
	}

	return nil
}
