package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ServiceKey authenticates agency callbacks with the X-Service-Key header.
// Every configured key is accepted so agencies can rotate without downtime.
// Comparison is constant-time.
func ServiceKey(keys []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get("X-Service-Key")
			if presented == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing service key")
			}

			for _, key := range keys {
				if key == "" {
					continue
				}
				if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "invalid service key")
		}
	}
}
