//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/handler"
	"github.com/dushixiang/simvest/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewTradingHandler,
		handler.NewAdminHandler,
	)

	tradingSet = wire.NewSet(
		provideQuoteProvider,
		provideSSOVerifier,
		provideOpenAIClient,
		provideLLMStrategy,
		service.NewQuoteService,
		wire.Bind(new(service.PriceSource), new(*service.QuoteService)),
		service.NewStrategyRegistry,
		service.NewTradeService,
		service.NewPortfolioService,
		service.NewLeaderboardService,
		service.NewAITraderService,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
