package handler

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAdminHandlerFixture(t *testing.T) *AdminHandler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		models.Account{}, models.Holding{}, models.Transaction{},
		models.Instrument{}, models.Persona{}, models.NetWorthHistory{},
	))

	conf := &config.Config{}
	conf.Normalize()
	logger := zap.NewNop()

	quoteService := service.NewQuoteService(db, nil, conf, logger)
	registry := service.NewStrategyRegistry(nil, logger)
	tradeService := service.NewTradeService(db, quoteService, conf, logger)
	portfolioService := service.NewPortfolioService(db, quoteService, conf, logger)
	aiTrader := service.NewAITraderService(db, portfolioService, tradeService, registry, quoteService, conf, logger)

	return NewAdminHandler(aiTrader, quoteService, logger)
}

func postContext(e *echo.Echo) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return e.NewContext(req, rec), rec
}

func TestAdminHandler_StartStopLifecycle(t *testing.T) {
	h := newAdminHandlerFixture(t)
	e := echo.New()

	c, rec := postContext(e)
	require.NoError(t, h.StartAI(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, h.aiTrader.IsRunning, time.Second, 10*time.Millisecond)

	// 已在运行时重复启动被拒绝
	c, rec = postContext(e)
	require.NoError(t, h.StartAI(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = postContext(e)
	require.NoError(t, h.StopAI(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, h.aiTrader.IsRunning())

	// 已停止时重复停止被拒绝
	c, rec = postContext(e)
	require.NoError(t, h.StopAI(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_ConcurrentStartStop(t *testing.T) {
	h := newAdminHandlerFixture(t)
	e := echo.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _ := postContext(e)
			if i%2 == 0 {
				_ = h.StartAI(c)
			} else {
				_ = h.StopAI(c)
			}
		}(i)
	}
	wg.Wait()

	// 无论交错顺序如何，最终都能收敛到停止状态
	require.Eventually(t, func() bool {
		if h.aiTrader.IsRunning() {
			h.aiTrader.Stop()
		}
		return !h.aiTrader.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)
}
