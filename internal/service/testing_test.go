package service

import (
	"context"
	"testing"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newTestDB creates an isolated in-memory database per test.
// A single connection keeps concurrent transactions serialized the
// same way a file-backed sqlite database would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		models.Account{}, models.Holding{}, models.Transaction{},
		models.Instrument{}, models.Persona{}, models.NetWorthHistory{},
	)
	require.NoError(t, err)

	return db
}

func newTestConfig() *config.Config {
	conf := &config.Config{}
	conf.Normalize()
	return conf
}

// stubPriceSource is a fixed price table for tests.
type stubPriceSource struct {
	prices  map[string]float64
	history map[string][]float64
}

func (s *stubPriceSource) GetPrice(instrumentID string) float64 {
	if price, ok := s.prices[instrumentID]; ok {
		return price
	}
	return 100
}

func (s *stubPriceSource) PriceHistory(instrumentID string) []float64 {
	return s.history[instrumentID]
}

func seedAccount(t *testing.T, db *gorm.DB, id string, cash float64) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:            id,
		Nickname:      id,
		CashAvailable: cash,
		CashDeposited: cash,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedInstrument(t *testing.T, db *gorm.DB, id, name string) *models.Instrument {
	t.Helper()
	instrument := &models.Instrument{ID: id, Name: name}
	require.NoError(t, db.Create(instrument).Error)
	return instrument
}

func mustHolding(t *testing.T, db *gorm.DB, userID, instrumentID string) models.Holding {
	t.Helper()
	var holding models.Holding
	err := db.Where("user_id = ? AND instrument_id = ?", userID, instrumentID).First(&holding).Error
	require.NoError(t, err)
	return holding
}

func countTransactions(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func testContext() context.Context {
	return context.Background()
}

var testLogger = zap.NewNop()
