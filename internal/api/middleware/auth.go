package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// Auth validates the bearer token, rejects revoked tokens and injects the
// caller's identity into the request context under "userId" and "role".
// The raw token is kept under "token" so logout can revoke it.
//
// A denylist outage is not fatal: a verified token passes through and the
// failure is logged, so losing redis degrades logout to stateless.
func Auth(tokens ports.TokenService, denylist ports.TokenDenylist, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if denylist != nil {
				revoked, err := denylist.IsRevoked(c.Request().Context(), raw)
				if err != nil {
					log.Warn().Err(err).Msg("denylist unavailable, skipping revocation check")
				} else if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			c.Set("userId", claims.Subject)
			c.Set("role", claims.Role)
			c.Set("token", raw)

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
