package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider serves canned prices per ticker and fails for the rest.
type fakeProvider struct {
	prices map[string]float64
	calls  int
}

func (p *fakeProvider) FetchPrice(ctx context.Context, ticker string) (float64, error) {
	p.calls++
	if price, ok := p.prices[ticker]; ok {
		return price, nil
	}
	return 0, fmt.Errorf("provider down for %s", ticker)
}

func newQuoteService(t *testing.T, db *gorm.DB, provider *fakeProvider) *QuoteService {
	t.Helper()
	return NewQuoteService(db, provider, newTestConfig(), testLogger)
}

func seedTickerInstrument(t *testing.T, db *gorm.DB, id, name, ticker string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Instrument{ID: id, Name: name, Ticker: ticker}).Error)
}

func TestGetPrice_FallbackNeverFails(t *testing.T) {
	db := newTestDB(t)
	svc := newQuoteService(t, db, &fakeProvider{})

	assert.Equal(t, 100.0, svc.GetPrice("never-refreshed"))
}

func TestSetPriceAndHistory(t *testing.T) {
	db := newTestDB(t)
	svc := newQuoteService(t, db, &fakeProvider{})

	svc.SetPrice("acme", 110)
	svc.SetPrice("acme", 120)

	assert.Equal(t, 120.0, svc.GetPrice("acme"))
	assert.Equal(t, []float64{110, 120}, svc.PriceHistory("acme"))
}

func TestPriceHistory_Bounded(t *testing.T) {
	db := newTestDB(t)
	svc := newQuoteService(t, db, &fakeProvider{})

	for i := 0; i < quoteHistoryDepth+10; i++ {
		svc.SetPrice("acme", float64(i))
	}

	history := svc.PriceHistory("acme")
	assert.Len(t, history, quoteHistoryDepth)
	assert.Equal(t, float64(quoteHistoryDepth+9), history[len(history)-1])
}

func TestRefreshAll_PerInstrumentIsolation(t *testing.T) {
	db := newTestDB(t)
	seedTickerInstrument(t, db, "acme", "Acme Corp", "ACME")
	seedTickerInstrument(t, db, "ghost", "Ghost Inc", "GHST")

	provider := &fakeProvider{prices: map[string]float64{"ACME": 135}}
	svc := newQuoteService(t, db, provider)

	statuses, err := svc.RefreshAll(testContext())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byID := make(map[string]RefreshStatus)
	for _, status := range statuses {
		byID[status.InstrumentID] = status
	}

	assert.Equal(t, "ok", byID["acme"].Status)
	assert.Equal(t, 135.0, byID["acme"].Price)
	assert.Equal(t, "stale", byID["ghost"].Status)
	assert.NotEmpty(t, byID["ghost"].Error)

	// 失败的标的仍可定价（兜底价），成功的用新报价
	assert.Equal(t, 135.0, svc.GetPrice("acme"))
	assert.Equal(t, 100.0, svc.GetPrice("ghost"))
}

func TestRefreshAll_StaleKeepsLastKnownPrice(t *testing.T) {
	db := newTestDB(t)
	seedTickerInstrument(t, db, "acme", "Acme Corp", "ACME")

	provider := &fakeProvider{prices: map[string]float64{"ACME": 150}}
	svc := newQuoteService(t, db, provider)

	_, err := svc.RefreshAll(testContext())
	require.NoError(t, err)
	require.Equal(t, 150.0, svc.GetPrice("acme"))

	// 行情服务随后不可用，保留上次已知价格
	provider.prices = nil
	statuses, err := svc.RefreshAll(testContext())
	require.NoError(t, err)
	assert.Equal(t, "stale", statuses[0].Status)
	assert.Equal(t, 150.0, svc.GetPrice("acme"))
}

func TestRefreshAll_SyntheticInstrument(t *testing.T) {
	db := newTestDB(t)
	seedInstrument(t, db, "fund", "教学基金") // 无ticker

	svc := newQuoteService(t, db, &fakeProvider{})

	statuses, err := svc.RefreshAll(testContext())
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	assert.Equal(t, "synthetic", statuses[0].Status)
	assert.Equal(t, 100.0, statuses[0].Price)
	assert.Equal(t, 100.0, svc.GetPrice("fund"))
}

func TestRefreshAll_PersistsMarkPrice(t *testing.T) {
	db := newTestDB(t)
	seedTickerInstrument(t, db, "acme", "Acme Corp", "ACME")

	provider := &fakeProvider{prices: map[string]float64{"ACME": 87.5}}
	svc := newQuoteService(t, db, provider)

	_, err := svc.RefreshAll(testContext())
	require.NoError(t, err)

	var instrument models.Instrument
	require.NoError(t, db.First(&instrument, "id = ?", "acme").Error)
	assert.Equal(t, 87.5, instrument.MarkPrice)
}
