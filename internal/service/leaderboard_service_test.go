package service

import (
	"testing"
	"time"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_OrdersByTotalValueDesc(t *testing.T) {
	db := newTestDB(t)
	seedInstrument(t, db, "acme", "Acme Corp")

	pricer := &stubPriceSource{prices: map[string]float64{"acme": 100}}
	portfolio := newPortfolioService(t, db, pricer)
	trades := NewTradeService(db, pricer, newTestConfig(), testLogger)
	svc := NewLeaderboardService(db, portfolio, testLogger)

	seedAccount(t, db, "alice", 1000000)
	seedAccount(t, db, "bob", 1000000)
	seedAccount(t, db, "carol", 1000000)

	// bob 持仓升值，carol 持仓贬值
	_, err := trades.ExecuteOrder(testContext(), "bob", "acme", models.OrderSideBuy, 100)
	require.NoError(t, err)
	_, err = trades.ExecuteOrder(testContext(), "carol", "acme", models.OrderSideBuy, 100)
	require.NoError(t, err)

	// carol 低价割肉
	pricer.prices["acme"] = 90
	_, err = trades.ExecuteOrder(testContext(), "carol", "acme", models.OrderSideSell, 100)
	require.NoError(t, err)

	pricer.prices["acme"] = 110

	entries, err := svc.Rank(testContext(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "bob", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1001000.0, entries[0].TotalValue)

	assert.Equal(t, "alice", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 1000000.0, entries[1].TotalValue)

	assert.Equal(t, "carol", entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
	assert.Equal(t, 999000.0, entries[2].TotalValue)
}

func TestRank_TieBreaksByRegistrationOrder(t *testing.T) {
	db := newTestDB(t)

	pricer := &stubPriceSource{}
	portfolio := newPortfolioService(t, db, pricer)
	svc := NewLeaderboardService(db, portfolio, testLogger)

	// 相同净值，先注册者在前
	first := seedAccount(t, db, "first", 1000000)
	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)
	seedAccount(t, db, "second", 1000000)

	entries, err := svc.Rank(testContext(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].UserID)
	assert.Equal(t, "second", entries[1].UserID)
}

func TestRank_Limit(t *testing.T) {
	db := newTestDB(t)

	pricer := &stubPriceSource{}
	portfolio := newPortfolioService(t, db, pricer)
	svc := NewLeaderboardService(db, portfolio, testLogger)

	for _, id := range []string{"a", "b", "c", "d"} {
		seedAccount(t, db, id, 1000000)
	}

	entries, err := svc.Rank(testContext(), 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRank_IncludesBots(t *testing.T) {
	db := newTestDB(t)

	pricer := &stubPriceSource{}
	portfolio := newPortfolioService(t, db, pricer)
	svc := NewLeaderboardService(db, portfolio, testLogger)

	seedAccount(t, db, "human", 1000000)
	bot, err := portfolio.CreateBotAccount(testContext(), "激进的小明")
	require.NoError(t, err)

	entries, err := svc.Rank(testContext(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var foundBot bool
	for _, entry := range entries {
		if entry.UserID == bot.ID {
			foundBot = true
			assert.True(t, entry.IsBot)
			assert.Equal(t, "激进的小明", entry.Nickname)
		}
	}
	assert.True(t, foundBot)
}
