package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// ctxUser extracts the identity injected by the Auth middleware and performs
// a fast-fail check before any service call: a non-empty userId proves the
// middleware ran.
func ctxUser(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get("userId").(string)
	if userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get("role").(string)
	return userID, role, nil
}

// ctxCitizen is ctxUser restricted to registered citizens. Anonymous session
// tokens can file alerts but never touch profile or account state.
func ctxCitizen(c echo.Context) (string, error) {
	userID, role, err := ctxUser(c)
	if err != nil {
		return "", err
	}
	if role == domain.RoleAnonymous {
		return "", echo.NewHTTPError(http.StatusForbidden, "not available for anonymous sessions")
	}
	return userID, nil
}
