package quote

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RestClient 基于HTTP的行情客户端
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Provider = (*RestClient)(nil)

// NewRestClient 创建行情客户端
func NewRestClient(baseURL string, rateLimit float64, burst int, logger *zap.Logger) *RestClient {
	client := resty.New().SetBaseURL(baseURL)

	return &RestClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

// quoteResponse 行情接口响应
type quoteResponse struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
}

// FetchPrice 获取单个行情代码的最新价格
func (c *RestClient) FetchPrice(ctx context.Context, ticker string) (float64, error) {
	const maxRetries = 3

	var resp *resty.Response
	var err error
	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = c.client.R().
			SetContext(ctx).
			SetQueryParam("ticker", ticker).
			SetResult(&quoteResponse{}).
			Get("/v1/quote")

		if err == nil && !resp.IsError() {
			result := resp.Result().(*quoteResponse)
			if result.Price <= 0 {
				return 0, fmt.Errorf("provider returned non-positive price for %s", ticker)
			}
			return result.Price, nil
		}

		// 客户端错误不重试，服务端错误与网络错误退避后重试
		if err == nil && resp.StatusCode() < 500 {
			break
		}

		c.logger.Warn("quote request failed, retrying",
			zap.String("ticker", ticker),
			zap.Int("attempt", i+1),
			zap.Error(err))
	}

	if err != nil {
		return 0, fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
	}
	return 0, fmt.Errorf("failed to fetch quote for %s: status %d", ticker, resp.StatusCode())
}
