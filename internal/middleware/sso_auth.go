package middleware

import (
	"net/http"

	"github.com/dushixiang/simvest/pkg/nostd"
	"github.com/dushixiang/simvest/pkg/sso"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SSOAuthConfig 单点登录认证配置
type SSOAuthConfig struct {
	Verifier sso.Verifier
	Logger   *zap.Logger
}

// SSOAuth 单点登录认证中间件。令牌交由外部SSO服务校验，
// 通过后把用户身份写入请求Context。
func SSOAuth(config SSOAuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := nostd.GetToken(c)
			if token == "" {
				config.Logger.Warn("sso token missing",
					zap.String("path", c.Request().URL.Path),
					zap.String("remote_ip", c.RealIP()))

				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "未授权：缺少token",
				})
			}

			identity, err := config.Verifier.VerifyToken(c.Request().Context(), token)
			if err != nil {
				config.Logger.Warn("invalid sso token",
					zap.String("path", c.Request().URL.Path),
					zap.String("remote_ip", c.RealIP()),
					zap.Error(err))

				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "未授权：token无效或已过期",
				})
			}

			c.Set("user_id", identity.UserID)
			c.Set("email", identity.Email)
			c.Set("nickname", identity.Nickname)

			return next(c)
		}
	}
}
