package handler

import (
	"net/http"

	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// TradingHandler 交易系统HTTP处理器
type TradingHandler struct {
	logger *zap.Logger

	tradeService       *service.TradeService
	portfolioService   *service.PortfolioService
	leaderboardService *service.LeaderboardService
	quoteService       *service.QuoteService
}

// NewTradingHandler 创建交易处理器
func NewTradingHandler(
	tradeService *service.TradeService,
	portfolioService *service.PortfolioService,
	leaderboardService *service.LeaderboardService,
	quoteService *service.QuoteService,
	logger *zap.Logger,
) *TradingHandler {
	return &TradingHandler{
		logger:             logger,
		tradeService:       tradeService,
		portfolioService:   portfolioService,
		leaderboardService: leaderboardService,
		quoteService:       quoteService,
	}
}

// OrderRequest 下单请求
type OrderRequest struct {
	InstrumentID string  `json:"instrument_id" validate:"required"`
	Side         string  `json:"side" validate:"required,oneof=BUY SELL"`
	Shares       float64 `json:"shares" validate:"required,gt=0"`
}

// identity 从请求Context取出认证中间件写入的用户身份
func identity(c echo.Context) (userID, email, nickname string) {
	userID, _ = c.Get("user_id").(string)
	email, _ = c.Get("email").(string)
	nickname, _ = c.Get("nickname").(string)
	return userID, email, nickname
}

// CreateOrder 执行一笔买入或卖出
// POST /api/orders
func (h *TradingHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求参数错误")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID, email, nickname := identity(c)
	if _, err := h.portfolioService.EnsureAccount(ctx, userID, email, nickname); err != nil {
		return err
	}

	result, err := h.tradeService.ExecuteOrder(ctx, userID, req.InstrumentID, models.OrderSide(req.Side), req.Shares)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetPortfolio 获取当前用户的组合估值
// GET /api/portfolio
func (h *TradingHandler) GetPortfolio(c echo.Context) error {
	ctx := c.Request().Context()

	userID, email, nickname := identity(c)
	if _, err := h.portfolioService.EnsureAccount(ctx, userID, email, nickname); err != nil {
		return err
	}

	valuation, err := h.portfolioService.Valuate(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, valuation)
}

// GetTransactions 获取当前用户最近的成交记录
// GET /api/transactions?limit=20
func (h *TradingHandler) GetTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 20
	if l := c.QueryParam("limit"); l != "" {
		limit = cast.ToInt(l)
	}

	userID, _, _ := identity(c)
	transactions, err := h.portfolioService.RecentTransactions(ctx, userID, limit)
	if err != nil {
		return err
	}
	total, err := h.portfolioService.CountTransactions(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":        len(transactions),
		"total":        total,
		"transactions": transactions,
	})
}

// GetEquityCurve 获取当前用户的净值曲线
// GET /api/equity-curve
func (h *TradingHandler) GetEquityCurve(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _, _ := identity(c)
	histories, err := h.portfolioService.GetEquityCurve(ctx, userID)
	if err != nil {
		return err
	}

	data := make([]map[string]interface{}, 0, len(histories))
	for _, history := range histories {
		data = append(data, map[string]interface{}{
			"timestamp":      history.RecordedAt.Unix(),
			"time":           history.RecordedAt,
			"cash":           history.Cash,
			"holdings_value": history.HoldingsValue,
			"total_value":    history.TotalValue,
			"iteration":      history.Iteration,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(data),
		"data":  data,
	})
}

// ResetAccount 重置当前用户账户
// POST /api/account/reset
func (h *TradingHandler) ResetAccount(c echo.Context) error {
	ctx := c.Request().Context()

	userID, email, nickname := identity(c)
	if err := h.portfolioService.ResetAccount(ctx, userID, email, nickname); err != nil {
		return err
	}

	h.logger.Info("account reset via API", zap.String("user_id", userID))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "账户已重置",
	})
}

// GetLeaderboard 获取净值排行榜
// GET /api/leaderboard?limit=50
func (h *TradingHandler) GetLeaderboard(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		limit = cast.ToInt(l)
	}

	entries, err := h.leaderboardService.Rank(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetInstruments 获取可交易标的及最新报价
// GET /api/instruments
func (h *TradingHandler) GetInstruments(c echo.Context) error {
	ctx := c.Request().Context()

	instruments, err := h.quoteService.InstrumentRepo.FindAllOrderByID(ctx)
	if err != nil {
		return err
	}

	data := make([]map[string]interface{}, 0, len(instruments))
	for _, instrument := range instruments {
		data = append(data, map[string]interface{}{
			"id":     instrument.ID,
			"name":   instrument.Name,
			"ticker": instrument.Ticker,
			"price":  h.quoteService.GetPrice(instrument.ID),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":       len(data),
		"instruments": data,
	})
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.CreateOrder)
	g.GET("/portfolio", h.GetPortfolio)
	g.GET("/transactions", h.GetTransactions)
	g.GET("/equity-curve", h.GetEquityCurve)
	g.POST("/account/reset", h.ResetAccount)
	g.GET("/leaderboard", h.GetLeaderboard)
	g.GET("/instruments", h.GetInstruments)
}
