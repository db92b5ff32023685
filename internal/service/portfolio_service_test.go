package service

import (
	"testing"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/xe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPortfolioService(t *testing.T, db *gorm.DB, pricer PriceSource) *PortfolioService {
	t.Helper()
	return NewPortfolioService(db, pricer, newTestConfig(), testLogger)
}

func TestEnsureAccount_CreatesWithStartingGrant(t *testing.T) {
	db := newTestDB(t)
	pricer := &stubPriceSource{}
	svc := newPortfolioService(t, db, pricer)

	account, err := svc.EnsureAccount(testContext(), "alice", "alice@example.com", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.ID)
	assert.Equal(t, 1000000.0, account.CashAvailable)
	assert.Equal(t, 1000000.0, account.CashDeposited)
	assert.False(t, account.IsBot)
}

func TestEnsureAccount_Idempotent(t *testing.T) {
	db := newTestDB(t)
	pricer := &stubPriceSource{}
	svc := newPortfolioService(t, db, pricer)

	first, err := svc.EnsureAccount(testContext(), "alice", "alice@example.com", "Alice")
	require.NoError(t, err)

	// 修改余额后再次访问，账户不应被重建
	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", "alice").
		Update("cash_available", 42.0).Error)

	second, err := svc.EnsureAccount(testContext(), "alice", "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 42.0, second.CashAvailable)
}

func TestValuate(t *testing.T) {
	db := newTestDB(t)
	seedInstrument(t, db, "acme", "Acme Corp")
	seedInstrument(t, db, "globex", "Globex")

	pricer := &stubPriceSource{prices: map[string]float64{"acme": 120, "globex": 50}}
	svc := newPortfolioService(t, db, pricer)
	trades := NewTradeService(db, pricer, newTestConfig(), testLogger)

	_, err := svc.EnsureAccount(testContext(), "alice", "", "Alice")
	require.NoError(t, err)

	_, err = trades.ExecuteOrder(testContext(), "alice", "acme", models.OrderSideBuy, 10)
	require.NoError(t, err)
	_, err = trades.ExecuteOrder(testContext(), "alice", "globex", models.OrderSideBuy, 20)
	require.NoError(t, err)

	valuation, err := svc.Valuate(testContext(), "alice")
	require.NoError(t, err)

	// 现金 1000000 - 1200 - 1000 = 997800，持仓市值 1200 + 1000 = 2200
	assert.Equal(t, 997800.0, valuation.Cash)
	assert.Equal(t, 2200.0, valuation.HoldingsValue)
	assert.Equal(t, 1000000.0, valuation.TotalValue)
	assert.Equal(t, 0.0, valuation.GainLoss)
	assert.Len(t, valuation.Holdings, 2)

	// 报价上涨后净值与盈亏同步变化
	pricer.prices["acme"] = 220
	valuation, err = svc.Valuate(testContext(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1001000.0, valuation.TotalValue)
	assert.Equal(t, 1000.0, valuation.GainLoss)
}

func TestValuate_AccountNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newPortfolioService(t, db, &stubPriceSource{})

	_, err := svc.Valuate(testContext(), "nobody")
	assert.ErrorIs(t, err, xe.ErrAccountNotFound)
}

func TestResetAccount(t *testing.T) {
	db := newTestDB(t)
	seedInstrument(t, db, "acme", "Acme Corp")

	pricer := &stubPriceSource{prices: map[string]float64{"acme": 100}}
	svc := newPortfolioService(t, db, pricer)
	trades := NewTradeService(db, pricer, newTestConfig(), testLogger)

	_, err := svc.EnsureAccount(testContext(), "alice", "", "Alice")
	require.NoError(t, err)
	_, err = trades.ExecuteOrder(testContext(), "alice", "acme", models.OrderSideBuy, 10)
	require.NoError(t, err)
	require.NoError(t, svc.SaveSnapshot(testContext(), "alice", 1))

	require.NoError(t, svc.ResetAccount(testContext(), "alice", "", "Alice"))

	valuation, err := svc.Valuate(testContext(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, valuation.Cash)
	assert.Empty(t, valuation.Holdings)
	assert.EqualValues(t, 0, countTransactions(t, db, "alice"))

	histories, err := svc.GetEquityCurve(testContext(), "alice")
	require.NoError(t, err)
	assert.Empty(t, histories)

	// 重置是幂等的
	require.NoError(t, svc.ResetAccount(testContext(), "alice", "", "Alice"))
}

func TestResetAccount_CreatesMissingAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newPortfolioService(t, db, &stubPriceSource{})

	require.NoError(t, svc.ResetAccount(testContext(), "fresh", "", "Fresh"))

	valuation, err := svc.Valuate(testContext(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1000000.0, valuation.TotalValue)
}

func TestCountTransactions(t *testing.T) {
	db := newTestDB(t)
	seedInstrument(t, db, "acme", "Acme Corp")

	pricer := &stubPriceSource{prices: map[string]float64{"acme": 100}}
	svc := newPortfolioService(t, db, pricer)
	trades := NewTradeService(db, pricer, newTestConfig(), testLogger)

	_, err := svc.EnsureAccount(testContext(), "alice", "", "Alice")
	require.NoError(t, err)

	total, err := svc.CountTransactions(testContext(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, err = trades.ExecuteOrder(testContext(), "alice", "acme", models.OrderSideBuy, 10)
	require.NoError(t, err)
	_, err = trades.ExecuteOrder(testContext(), "alice", "acme", models.OrderSideSell, 4)
	require.NoError(t, err)

	total, err = svc.CountTransactions(testContext(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestSaveSnapshotAndEquityCurve(t *testing.T) {
	db := newTestDB(t)
	svc := newPortfolioService(t, db, &stubPriceSource{})

	_, err := svc.EnsureAccount(testContext(), "alice", "", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.SaveSnapshot(testContext(), "alice", 1))
	require.NoError(t, svc.SaveSnapshot(testContext(), "alice", 2))

	histories, err := svc.GetEquityCurve(testContext(), "alice")
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, 1000000.0, histories[0].TotalValue)
	assert.Equal(t, 1, histories[0].Iteration)
	assert.Equal(t, 2, histories[1].Iteration)
}
