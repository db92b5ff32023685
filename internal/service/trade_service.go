package service

import (
	"context"
	"errors"
	"math"
	"strings"
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

// 单笔订单的存储往返超时，超时后订单关闭失败，不留下部分写入
const orderTimeout = 10 * time.Second

// OrderResult 订单执行结果
type OrderResult struct {
	TransactionID    string  `json:"transaction_id"`
	PricePerShare    float64 `json:"price_per_share"`
	TotalAmount      float64 `json:"total_amount"`
	NewCashAvailable float64 `json:"new_cash_available"`
	NewSharesOwned   float64 `json:"new_shares_owned"`
}

// TradeService 交易执行器。余额、持仓与成交记录的唯一写入口，
// 真人订单与AI订单走完全相同的校验与落账路径。
type TradeService struct {
	logger *zap.Logger

	*orz.Service
	*repo.AccountRepo

	holdingRepo     *repo.HoldingRepo
	transactionRepo *repo.TransactionRepo
	instrumentRepo  *repo.InstrumentRepo

	pricer     PriceSource
	maxRetries int
}

// NewTradeService 创建交易执行器
func NewTradeService(db *gorm.DB, pricer PriceSource, conf *config.Config, logger *zap.Logger) *TradeService {
	return &TradeService{
		logger:          logger,
		Service:         orz.NewService(db),
		AccountRepo:     repo.NewAccountRepo(db),
		holdingRepo:     repo.NewHoldingRepo(db),
		transactionRepo: repo.NewTransactionRepo(db),
		instrumentRepo:  repo.NewInstrumentRepo(db),
		pricer:          pricer,
		maxRetries:      conf.Trading.MaxOrderRetries,
	}
}

// ExecuteOrder 校验并执行一笔买入或卖出。
// 成功时恰好产生一次余额变更、一次持仓变更与一条成交记录；失败时零写入。
// 业务错误（资金不足、持仓不足、参数无效）直接返回不重试；
// 存储层写冲突在有限次数内重试后以 ErrStoreConflict 返回。
func (s *TradeService) ExecuteOrder(ctx context.Context, userID, instrumentID string, side models.OrderSide, shares float64) (*OrderResult, error) {
	if !side.Valid() {
		return nil, xe.ErrInvalidParams
	}
	if shares <= 0 || math.IsNaN(shares) || math.IsInf(shares, 0) {
		return nil, xe.ErrInvalidShareCount
	}

	if _, err := s.instrumentRepo.FindById(ctx, instrumentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrUnknownInstrument
		}
		return nil, err
	}

	// 执行价取缓存中的当前快照，缓存未命中时为兜底价，订单从不等待行情刷新
	price := s.pricer.GetPrice(instrumentID)
	cost := shares * price

	ctx, cancel := context.WithTimeout(ctx, orderTimeout)
	defer cancel()

	var result *OrderResult
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		result, err = s.executeOnce(ctx, userID, instrumentID, side, shares, price, cost)
		if err == nil {
			break
		}
		if !isRetryableStoreErr(err) {
			return nil, err
		}
		s.logger.Warn("order hit store conflict, retrying",
			zap.String("user_id", userID),
			zap.String("instrument_id", instrumentID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	if err != nil {
		return nil, xe.ErrStoreConflict
	}

	s.logger.Info("order executed",
		zap.String("user_id", userID),
		zap.String("instrument_id", instrumentID),
		zap.String("side", string(side)),
		zap.Float64("shares", shares),
		zap.Float64("price", price),
		zap.Float64("total", cost))

	return result, nil
}

// executeOnce 在单个存储事务内完成一笔订单的全部写入
func (s *TradeService) executeOnce(ctx context.Context, userID, instrumentID string, side models.OrderSide, shares, price, cost float64) (*OrderResult, error) {
	var result *OrderResult

	err := s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.AccountRepo.FindById(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return xe.ErrAccountNotFound
			}
			return err
		}

		switch side {
		case models.OrderSideBuy:
			ok, err := s.AccountRepo.DebitCashIfSufficient(ctx, userID, cost)
			if err != nil {
				return err
			}
			if !ok {
				return xe.ErrInsufficientFunds
			}
			if err := s.holdingRepo.UpsertAdd(ctx, userID, instrumentID, shares, cost); err != nil {
				return err
			}

		case models.OrderSideSell:
			ok, err := s.holdingRepo.ReduceSharesProRata(ctx, userID, instrumentID, shares)
			if err != nil {
				return err
			}
			if !ok {
				return xe.ErrInsufficientShares
			}
			if err := s.holdingRepo.DeleteIfEmpty(ctx, userID, instrumentID); err != nil {
				return err
			}
			if err := s.AccountRepo.CreditCash(ctx, userID, cost); err != nil {
				return err
			}
		}

		transaction := &models.Transaction{
			ID:            ulid.Make().String(),
			UserID:        userID,
			InstrumentID:  instrumentID,
			Side:          side,
			Shares:        shares,
			PricePerShare: price,
			TotalAmount:   cost,
			ExecutedAt:    time.Now(),
		}
		if err := s.transactionRepo.Create(ctx, transaction); err != nil {
			return err
		}

		account, err := s.AccountRepo.FindById(ctx, userID)
		if err != nil {
			return err
		}

		newShares := 0.0
		if holding, err := s.holdingRepo.FindOne(ctx, userID, instrumentID); err == nil {
			newShares = holding.SharesOwned
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		result = &OrderResult{
			TransactionID:    transaction.ID,
			PricePerShare:    price,
			TotalAmount:      cost,
			NewCashAvailable: account.CashAvailable,
			NewSharesOwned:   newShares,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isRetryableStoreErr 判断是否为可重试的存储层写冲突
func isRetryableStoreErr(err error) bool {
	var oe *orz.Error
	if errors.As(err, &oe) {
		// 业务错误一律终态
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "serialization failure")
}
