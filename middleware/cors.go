package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CORS returns middleware implementing the gateway's cross-origin policy:
// the request Origin is echoed back when it is on the allow-list, otherwise
// the first configured origin is answered. Credentials are always allowed
// because the browser client sends the session id with every call.
func CORS(allowedOrigins []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)

			allowed := ""
			if len(allowedOrigins) > 0 {
				allowed = allowedOrigins[0]
			}
			for _, o := range allowedOrigins {
				if origin == o {
					allowed = origin
					break
				}
			}

			h := c.Response().Header()
			if allowed != "" {
				h.Set(echo.HeaderAccessControlAllowOrigin, allowed)
			}
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
			h.Set(echo.HeaderAccessControlAllowCredentials, "true")
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}
