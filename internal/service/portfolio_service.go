package service

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/repo"
	"github.com/dushixiang/simvest/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PortfolioService 组合估值服务。账户在首次访问组合时自动创建并获得初始拨付。
type PortfolioService struct {
	logger *zap.Logger

	*orz.Service
	*repo.AccountRepo

	holdingRepo     *repo.HoldingRepo
	transactionRepo *repo.TransactionRepo
	historyRepo     *repo.NetWorthHistoryRepo
	instrumentRepo  *repo.InstrumentRepo

	pricer       PriceSource
	startingCash float64
}

// NewPortfolioService 创建组合估值服务
func NewPortfolioService(db *gorm.DB, pricer PriceSource, conf *config.Config, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		logger:          logger,
		Service:         orz.NewService(db),
		AccountRepo:     repo.NewAccountRepo(db),
		holdingRepo:     repo.NewHoldingRepo(db),
		transactionRepo: repo.NewTransactionRepo(db),
		historyRepo:     repo.NewNetWorthHistoryRepo(db),
		instrumentRepo:  repo.NewInstrumentRepo(db),
		pricer:          pricer,
		startingCash:    conf.Trading.StartingCash,
	}
}

// HoldingValuation 单个持仓的估值明细
type HoldingValuation struct {
	InstrumentID string  `json:"instrument_id"`
	Name         string  `json:"name"`
	Shares       float64 `json:"shares"`
	CostBasis    float64 `json:"cost_basis"`
	MarkPrice    float64 `json:"mark_price"`
	MarketValue  float64 `json:"market_value"`
}

// Valuation 组合估值结果
type Valuation struct {
	UserID        string             `json:"user_id"`
	Cash          float64            `json:"cash"`
	HoldingsValue float64            `json:"holdings_value"`
	TotalValue    float64            `json:"total_value"`
	CashDeposited float64            `json:"cash_deposited"`
	GainLoss      float64            `json:"gain_loss"`
	Holdings      []HoldingValuation `json:"holdings"`
}

// EnsureAccount 按需创建账户并发放初始资金；已存在时原样返回
func (s *PortfolioService) EnsureAccount(ctx context.Context, userID, email, nickname string) (*models.Account, error) {
	account, err := s.AccountRepo.FindById(ctx, userID)
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Account{
		ID:            userID,
		Email:         email,
		Nickname:      nickname,
		CashAvailable: s.startingCash,
		CashDeposited: s.startingCash,
	}
	if err := s.AccountRepo.Create(ctx, created); err != nil {
		// 并发首访可能撞上主键冲突，回读即可
		if existing, findErr := s.AccountRepo.FindById(ctx, userID); findErr == nil {
			return &existing, nil
		}
		return nil, err
	}

	s.logger.Info("account created with starting grant",
		zap.String("user_id", userID),
		zap.Float64("starting_cash", s.startingCash))

	return created, nil
}

// CreateBotAccount 创建AI机器人账户
func (s *PortfolioService) CreateBotAccount(ctx context.Context, nickname string) (*models.Account, error) {
	account := &models.Account{
		ID:            ulid.Make().String(),
		Nickname:      nickname,
		CashAvailable: s.startingCash,
		CashDeposited: s.startingCash,
		IsBot:         true,
	}
	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Valuate 计算账户当前净值。现金与报价独立变化，每次调用都重新计算，不缓存结果。
func (s *PortfolioService) Valuate(ctx context.Context, userID string) (*Valuation, error) {
	account, err := s.AccountRepo.FindById(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrAccountNotFound
		}
		return nil, err
	}

	holdings, err := s.holdingRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	instruments, err := s.instrumentRepo.FindAllOrderByID(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(instruments))
	for _, instrument := range instruments {
		names[instrument.ID] = instrument.Name
	}

	valuation := &Valuation{
		UserID:        userID,
		Cash:          account.CashAvailable,
		CashDeposited: account.CashDeposited,
		Holdings:      make([]HoldingValuation, 0, len(holdings)),
	}

	for _, holding := range holdings {
		price := s.pricer.GetPrice(holding.InstrumentID)
		marketValue := holding.SharesOwned * price

		valuation.HoldingsValue += marketValue
		valuation.Holdings = append(valuation.Holdings, HoldingValuation{
			InstrumentID: holding.InstrumentID,
			Name:         names[holding.InstrumentID],
			Shares:       holding.SharesOwned,
			CostBasis:    holding.TotalInvested,
			MarkPrice:    price,
			MarketValue:  marketValue,
		})
	}

	valuation.TotalValue = valuation.Cash + valuation.HoldingsValue
	valuation.GainLoss = valuation.TotalValue - valuation.CashDeposited

	return valuation, nil
}

// ResetAccount 账户重置：清空持仓、成交与净值历史，资金恢复为初始拨付。幂等。
func (s *PortfolioService) ResetAccount(ctx context.Context, userID, email, nickname string) error {
	if _, err := s.EnsureAccount(ctx, userID, email, nickname); err != nil {
		return err
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.holdingRepo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := s.transactionRepo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := s.historyRepo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return s.AccountRepo.ResetCash(ctx, userID, s.startingCash)
	})
}

// SaveSnapshot 记录一条净值快照
func (s *PortfolioService) SaveSnapshot(ctx context.Context, userID string, iteration int) error {
	valuation, err := s.Valuate(ctx, userID)
	if err != nil {
		return err
	}

	history := &models.NetWorthHistory{
		ID:            ulid.Make().String(),
		UserID:        userID,
		Cash:          valuation.Cash,
		HoldingsValue: valuation.HoldingsValue,
		TotalValue:    valuation.TotalValue,
		Iteration:     iteration,
		RecordedAt:    time.Now(),
	}
	return s.historyRepo.Create(ctx, history)
}

// GetEquityCurve 获取账户净值曲线
func (s *PortfolioService) GetEquityCurve(ctx context.Context, userID string) ([]models.NetWorthHistory, error) {
	return s.historyRepo.FindByUserOrderByRecordedAt(ctx, userID)
}

// RecentTransactions 获取账户最近的成交记录
func (s *PortfolioService) RecentTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	return s.transactionRepo.FindRecentByUser(ctx, userID, limit)
}

// CountTransactions 统计账户累计成交笔数
func (s *PortfolioService) CountTransactions(ctx context.Context, userID string) (int64, error) {
	return s.transactionRepo.CountByUser(ctx, userID)
}
