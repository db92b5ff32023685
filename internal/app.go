package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/handler"
	"github.com/dushixiang/simvest/internal/middleware"
	"github.com/dushixiang/simvest/internal/models"
	"github.com/dushixiang/simvest/internal/service"
	"github.com/dushixiang/simvest/pkg/nostd"
	"github.com/dushixiang/simvest/pkg/sso"
	"github.com/dushixiang/simvest/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewSimvestApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewSimvestApp() orz.Application {
	return &SimvestApp{}
}

var _ orz.Application = (*SimvestApp)(nil)

type AppComponents struct {
	TradingHandler *handler.TradingHandler
	AdminHandler   *handler.AdminHandler

	SSOVerifier sso.Verifier

	QuoteService       *service.QuoteService
	TradeService       *service.TradeService
	PortfolioService   *service.PortfolioService
	LeaderboardService *service.LeaderboardService
	AITrader           *service.AITraderService
}

type SimvestApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *SimvestApp) GetComponents() *AppComponents {
	return r.components
}

func (r *SimvestApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.Normalize()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Account{}, models.Holding{}, models.Transaction{},
		models.Instrument{}, models.Persona{}, models.NetWorthHistory{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(echoMiddleware.Gzip())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		Skipper:      echoMiddleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(echoMiddleware.RecoverWithConfig(echoMiddleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(echoMiddleware.StaticWithConfig(echoMiddleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	api.Use(middleware.SSOAuth(middleware.SSOAuthConfig{
		Verifier: components.SSOVerifier,
		Logger:   logger,
	}))
	{
		components.TradingHandler.RegisterRoutes(api)
		components.AdminHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *SimvestApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Simvest Virtual Trading System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	ctx := context.Background()

	// 按配置播种可交易标的
	for _, instrumentConf := range r.conf.Trading.Instruments {
		instrument := &models.Instrument{
			ID:     instrumentConf.ID,
			Name:   instrumentConf.Name,
			Ticker: instrumentConf.Ticker,
		}
		if err := components.QuoteService.InstrumentRepo.EnsureExists(ctx, instrument); err != nil {
			return fmt.Errorf("failed to seed instrument %s: %w", instrumentConf.ID, err)
		}
	}

	// 按配置播种AI投资人
	if err := components.AITrader.SeedPersonas(ctx, r.conf.Trading.Personas); err != nil {
		return fmt.Errorf("failed to seed personas: %w", err)
	}

	refreshInterval := time.Duration(r.conf.Quotes.RefreshMinutes) * time.Minute
	components.QuoteService.StartRefreshWorker(ctx, refreshInterval)

	logger.Info("AI trader initialized, starting...")

	go func() {
		if err := components.AITrader.Start(context.Background()); err != nil {
			logger.Error("ai trader error", zap.Error(err))
		}
	}()
	return nil
}
