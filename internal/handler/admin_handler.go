package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/dushixiang/simvest/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AdminHandler 管理接口：AI调度控制、报价刷新与AI投资人配置
type AdminHandler struct {
	logger *zap.Logger

	aiTrader     *service.AITraderService
	quoteService *service.QuoteService

	// mu 串行化启停操作，保护循环上下文
	mu         sync.Mutex
	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(
	aiTrader *service.AITraderService,
	quoteService *service.QuoteService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		logger:       logger,
		aiTrader:     aiTrader,
		quoteService: quoteService,
	}
}

// GetAIStatus 获取AI调度器状态
// GET /api/admin/ai/status
func (h *AdminHandler) GetAIStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.aiTrader.GetStatus(c.Request().Context()))
}

// RunAITick 手动触发一个调度周期。与cron触发落在同一窗口时不会重复执行。
// POST /api/admin/ai/tick
func (h *AdminHandler) RunAITick(c echo.Context) error {
	outcomes, err := h.aiTrader.RunTick(c.Request().Context())
	if err != nil {
		return err
	}

	if outcomes == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "本周期窗口已执行，跳过",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(outcomes),
		"outcomes": outcomes,
	})
}

// StartAI 启动AI调度循环
// POST /api/admin/ai/start
func (h *AdminHandler) StartAI(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.aiTrader.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "ai trader is already running",
		})
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	h.loopCtx, h.loopCancel = loopCtx, loopCancel
	go func() {
		if err := h.aiTrader.Start(loopCtx); err != nil {
			h.logger.Error("ai trader error", zap.Error(err))
		}
	}()

	h.logger.Info("ai trader started via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "ai trader started",
	})
}

// StopAI 停止AI调度循环
// POST /api/admin/ai/stop
func (h *AdminHandler) StopAI(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.aiTrader.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "ai trader is not running",
		})
	}

	h.aiTrader.Stop()
	if h.loopCancel != nil {
		h.loopCancel()
	}

	h.logger.Info("ai trader stopped via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "ai trader stopped",
	})
}

// RefreshQuotes 立即刷新全部标的报价
// POST /api/admin/quotes/refresh
func (h *AdminHandler) RefreshQuotes(c echo.Context) error {
	statuses, err := h.quoteService.RefreshAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(statuses),
		"statuses": statuses,
	})
}

// ListPersonas 获取AI投资人配置列表
// GET /api/admin/personas
func (h *AdminHandler) ListPersonas(c echo.Context) error {
	personas, err := h.aiTrader.ListPersonas(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(personas),
		"personas": personas,
	})
}

// UpdatePersona 修改AI投资人配置
// PUT /api/admin/personas/:id
func (h *AdminHandler) UpdatePersona(c echo.Context) error {
	var req service.PersonaUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求参数错误")
	}

	persona, err := h.aiTrader.UpdatePersona(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}

	h.logger.Info("persona updated via API",
		zap.String("persona_id", persona.ID),
		zap.String("strategy", persona.Strategy))

	return c.JSON(http.StatusOK, persona)
}

// RegisterRoutes 注册路由
func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	admin := g.Group("/admin")

	admin.GET("/ai/status", h.GetAIStatus)
	admin.POST("/ai/tick", h.RunAITick)
	admin.POST("/ai/start", h.StartAI)
	admin.POST("/ai/stop", h.StopAI)

	admin.POST("/quotes/refresh", h.RefreshQuotes)

	admin.GET("/personas", h.ListPersonas)
	admin.PUT("/personas/:id", h.UpdatePersona)
}
