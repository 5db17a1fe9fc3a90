package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/wikigate/log"
)

// RequestLogger logs one line per request through the injected Logger, with
// trace ids attached when a span is in the request context.
func RequestLogger(logger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := map[string]interface{}{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"duration":   time.Since(start).String(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if err != nil {
				logger.Error(req.Context(), "request failed", err, fields)
				return nil
			}
			logger.Info(req.Context(), "request", fields)
			return nil
		}
	}
}
