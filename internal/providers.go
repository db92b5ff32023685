package internal

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dushixiang/simvest/internal/config"
	"github.com/dushixiang/simvest/internal/service"
	"github.com/dushixiang/simvest/pkg/quote"
	"github.com/dushixiang/simvest/pkg/sso"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const logFieldConfiguredModel = "model"

// provideQuoteProvider provides quote provider
func provideQuoteProvider(conf *config.Config, logger *zap.Logger) quote.Provider {
	client := quote.NewRestClient(
		conf.Quotes.BaseURL,
		conf.Quotes.RateLimit,
		conf.Quotes.RateLimitBurst,
		logger,
	)

	if conf.Quotes.BaseURL == "" {
		logger.Warn("quote provider base URL not configured; all instruments will use fallback prices")
	}

	return client
}

// provideSSOVerifier provides SSO token verifier
func provideSSOVerifier(conf *config.Config, logger *zap.Logger) sso.Verifier {
	return sso.NewClient(conf.SSO.BaseURL, logger)
}

// provideOpenAIClient provides OpenAI client
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	if conf.LLM.APIKey == "" {
		logger.Warn("LLM API key not configured, llm strategy will be unavailable")
		return nil
	}

	var options = []option.RequestOption{
		option.WithBaseURL(conf.LLM.BaseURL),
		option.WithAPIKey(conf.LLM.APIKey),
	}
	if conf.LLM.ProxyURL != "" {
		u, err := url.Parse(conf.LLM.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("OpenAI client initialized",
		zap.String(logFieldConfiguredModel, conf.LLM.Model),
	)
	return &client
}

// provideLLMStrategy provides llm strategy
func provideLLMStrategy(client *openai.Client, conf *config.Config, logger *zap.Logger) *service.LLMStrategy {
	return service.NewLLMStrategy(client, conf.LLM.Model, logger)
}
