package nostd

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const Token = "Simvest-Token"

// GetToken 依次从 Authorization 头、自定义头与查询参数中提取令牌
func GetToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	token := c.Request().Header.Get(Token)
	if token != "" {
		return token
	}
	return c.QueryParam(Token)
}
