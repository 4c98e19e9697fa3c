package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CORS headers sent by the relay.
const (
	AllowOrigin  = "*"
	AllowMethods = "POST, OPTIONS"
	AllowHeaders = "Content-Type"
)

// CORS sets the permissive CORS headers on every response and answers
// preflight requests with 200 and an empty body. Register it with Echo.Pre
// so preflights never reach the router.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, AllowOrigin)

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			h.Set(echo.HeaderAccessControlAllowMethods, AllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, AllowHeaders)
			return c.NoContent(http.StatusOK)
		}
	}
}
