package sso

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Identity 外部单点登录服务解析出的用户身份
type Identity struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Verifier 令牌校验接口
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// Client 单点登录校验客户端
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

var _ Verifier = (*Client)(nil)

// NewClient 创建校验客户端
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger,
	}
}

// VerifyToken 向单点登录服务校验令牌并取回用户身份
func (c *Client) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&Identity{}).
		Get("/v1/userinfo")
	if err != nil {
		return nil, fmt.Errorf("sso request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sso rejected token: status %d", resp.StatusCode())
	}

	identity := resp.Result().(*Identity)
	if identity.UserID == "" {
		return nil, fmt.Errorf("sso returned empty user id")
	}
	return identity, nil
}
