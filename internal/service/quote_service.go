package service

import (
	"context"
	"sync"
	"time"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/repo"
	"github.com/dushixiang/simvest/pkg/quote"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PriceSource 报价读取接口。GetPrice 永不失败：缓存未命中时返回兜底价格。
type PriceSource interface {
	GetPrice(instrumentID string) float64
	PriceHistory(instrumentID string) []float64
}

// 每个标的保留的历史报价点数
const quoteHistoryDepth = 64

// QuoteService 报价缓存服务。持有每个标的的最新已知价格，
// 由刷新worker周期性从外部行情服务拉取；交易与估值只读缓存，不等待刷新。
type QuoteService struct {
	logger *zap.Logger

	*orz.Service
	*repo.InstrumentRepo

	provider quote.Provider
	fallback float64

	mu      sync.RWMutex
	prices  map[string]float64
	history map[string][]float64

	stopChan chan struct{}
	stopped  bool
}

var _ PriceSource = (*QuoteService)(nil)

// NewQuoteService 创建报价缓存服务
func NewQuoteService(db *gorm.DB, provider quote.Provider, conf *config.Config, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		logger:         logger,
		Service:        orz.NewService(db),
		InstrumentRepo: repo.NewInstrumentRepo(db),
		provider:       provider,
		fallback:       conf.Quotes.FallbackPrice,
		prices:         make(map[string]float64),
		history:        make(map[string][]float64),
	}
}

// GetPrice 获取标的最新价格，未命中时返回兜底价格，永不失败
func (s *QuoteService) GetPrice(instrumentID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if price, ok := s.prices[instrumentID]; ok {
		return price
	}
	return s.fallback
}

// PriceHistory 获取标的最近的报价序列（旧到新）
func (s *QuoteService) PriceHistory(instrumentID string) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.history[instrumentID]
	result := make([]float64, len(series))
	copy(result, series)
	return result
}

// SetPrice 写入一个报价点并记入历史序列
func (s *QuoteService) SetPrice(instrumentID string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[instrumentID] = price
	series := append(s.history[instrumentID], price)
	if len(series) > quoteHistoryDepth {
		series = series[len(series)-quoteHistoryDepth:]
	}
	s.history[instrumentID] = series
}

// RefreshStatus 单个标的的刷新结果
type RefreshStatus struct {
	InstrumentID string  `json:"instrument_id"`
	Ticker       string  `json:"ticker,omitempty"`
	Price        float64 `json:"price"`
	Status       string  `json:"status"` // ok/synthetic/stale
	Error        string  `json:"error,omitempty"`
}

// RefreshAll 刷新所有标的报价。尽力而为：单个标的失败不影响其它标的，
// 失败标的保留上次已知价格（无缓存时由 GetPrice 兜底）。
func (s *QuoteService) RefreshAll(ctx context.Context) ([]RefreshStatus, error) {
	instruments, err := s.InstrumentRepo.FindAllOrderByID(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]RefreshStatus, 0, len(instruments))
	for _, instrument := range instruments {
		status := RefreshStatus{
			InstrumentID: instrument.ID,
			Ticker:       instrument.Ticker,
		}

		if !instrument.HasTicker() {
			// 无真实行情对应，维持固定合成价
			price := instrument.MarkPrice
			if price <= 0 {
				price = s.fallback
			}
			s.SetPrice(instrument.ID, price)
			status.Price = price
			status.Status = "synthetic"
			statuses = append(statuses, status)
			continue
		}

		price, err := s.provider.FetchPrice(ctx, instrument.Ticker)
		if err != nil {
			s.logger.Warn("quote refresh failed for instrument",
				zap.String("instrument_id", instrument.ID),
				zap.String("ticker", instrument.Ticker),
				zap.Error(err))
			status.Price = s.GetPrice(instrument.ID)
			status.Status = "stale"
			status.Error = err.Error()
			statuses = append(statuses, status)
			continue
		}

		s.SetPrice(instrument.ID, price)
		if err := s.InstrumentRepo.UpdateMarkPrice(ctx, instrument.ID, price); err != nil {
			s.logger.Warn("failed to persist mark price",
				zap.String("instrument_id", instrument.ID),
				zap.Error(err))
		}
		status.Price = price
		status.Status = "ok"
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// StartRefreshWorker 启动后台报价刷新worker
func (s *QuoteService) StartRefreshWorker(ctx context.Context, interval time.Duration) {
	s.stopChan = make(chan struct{})
	s.stopped = false

	s.logger.Info("starting quote refresh worker", zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// 立即执行一次刷新，预热缓存
		if _, err := s.RefreshAll(ctx); err != nil {
			s.logger.Error("failed to refresh quotes on startup", zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				if _, err := s.RefreshAll(ctx); err != nil {
					s.logger.Error("failed to refresh quotes", zap.Error(err))
				}
			case <-s.stopChan:
				s.logger.Info("quote refresh worker stopped")
				return
			case <-ctx.Done():
				s.logger.Info("quote refresh worker stopped by context")
				return
			}
		}
	}()
}

// StopRefreshWorker 停止后台报价刷新worker
func (s *QuoteService) StopRefreshWorker() {
	if !s.stopped && s.stopChan != nil {
		close(s.stopChan)
		s.stopped = true
		s.logger.Info("quote refresh worker stop signal sent")
	}
}
