package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// AuthHandler exposes citizen identity operations.
type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenService
	denylist    ports.TokenDenylist
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenService, denylist ports.TokenDenylist, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, denylist: denylist, log: log}
}

// Register creates a new citizen account.
//
// @Summary      Register a new citizen
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: result.User, Tokens: result.Tokens})
}

// Login authenticates a citizen by email or phone number.
//
// @Summary      Login with email or phone
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{
		User:                result.User,
		Tokens:              result.Tokens,
		IsTemporaryPassword: result.IsTemporaryPassword,
	})
}

// LoginAnonymous issues a short-lived anonymous session token. The subject
// is synthetic; anonymous sessions can file alerts but own no account.
//
// @Summary      Open an anonymous session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  anonymousSessionResponse
// @Router       /login-anonymous [post]
func (h *AuthHandler) LoginAnonymous(c echo.Context) error {
	subject := fmt.Sprintf("anon_%d", time.Now().Unix())
	token, err := h.tokens.Issue(ports.TokenClaims{
		Subject: subject,
		Role:    domain.RoleAnonymous,
		Extra:   map[string]any{"isAnonymous": true},
	}, 0)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, anonymousSessionResponse{Token: token, Role: domain.RoleAnonymous})
}

// VerifyToken reports whether a bearer token is currently valid.
//
// @Summary      Check a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyTokenRequest  true  "Token to check"
// @Success      200   {object}  tokenStatusResponse
// @Router       /verify-token [post]
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	var req verifyTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	claims, err := h.tokens.Verify(req.Token)
	if err != nil {
		return c.JSON(http.StatusOK, tokenStatusResponse{Valid: false})
	}
	if h.denylist != nil {
		if revoked, derr := h.denylist.IsRevoked(c.Request().Context(), req.Token); derr == nil && revoked {
			return c.JSON(http.StatusOK, tokenStatusResponse{Valid: false})
		}
	}

	return c.JSON(http.StatusOK, tokenStatusResponse{Valid: true, UserID: claims.Subject, Role: claims.Role})
}

// VerifyAccount confirms an account with the 6-character code sent by
// email and SMS.
//
// @Summary      Verify an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyAccountRequest  true  "Verification code"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /verify-account [post]
func (h *AuthHandler) VerifyAccount(c echo.Context) error {
	var req verifyAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	code := req.Code
	if code == "" {
		// Both channels carry the same code; a mismatch means a typo.
		if req.EmailCode != "" && req.SMSCode != "" && req.EmailCode != req.SMSCode {
			return echo.NewHTTPError(http.StatusBadRequest, "verification codes do not match")
		}
		code = req.EmailCode
		if code == "" {
			code = req.SMSCode
		}
	}
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	user, err := h.authService.VerifyAccount(c.Request().Context(), req.Email, req.Phone, code)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// ResendVerificationCodes regenerates and re-sends the verification code.
//
// @Summary      Resend verification codes
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resendCodesRequest  true  "Account contact"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  errorResponse
// @Router       /resend-verification-codes [post]
func (h *AuthHandler) ResendVerificationCodes(c echo.Context) error {
	var req resendCodesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ResendVerificationCodes(c.Request().Context(), req.Email, req.Phone); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Codes de vérification renvoyés"})
}

// ForgotPassword starts the password reset flow. The response is identical
// whether or not the account exists.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Router       /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Errors are deliberately swallowed so the endpoint never reveals
	// whether an email is registered.
	_, _ = h.authService.RequestPasswordReset(c.Request().Context(), req.Email)

	return c.JSON(http.StatusOK, messageResponse{
		Message: "Si un compte existe avec cet email, un lien de réinitialisation a été envoyé",
	})
}

// ResetPassword sets a new password from a reset token.
//
// @Summary      Reset the password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.authService.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Mot de passe réinitialisé"})
}

// ChangePassword updates the password of the authenticated citizen.
//
// @Summary      Change the password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Router       /change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, err := ctxCitizen(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Mot de passe modifié"})
}

// Profile returns the authenticated citizen's profile.
//
// @Summary      Get my profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, err := ctxCitizen(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetUserInfo(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateProfile mutates the allow-listed profile fields. Unknown fields in
// the payload are ignored.
//
// @Summary      Update my profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to update"
// @Success      200   {object}  domain.User
// @Failure      401   {object}  errorResponse
// @Router       /profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := ctxCitizen(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), userID, ports.ProfileUpdate{
		FullName:       req.FullName,
		Phone:          req.Phone,
		Region:         req.Region,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Logout revokes the presented token for the remainder of its lifetime.
// When the denylist is unreachable the logout still succeeds: the token
// simply expires on its own, as it would without a denylist at all.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, _ := c.Get("token").(string)
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	if h.denylist != nil {
		claims, ok := h.tokens.Decode(raw)
		ttl := time.Duration(0)
		if ok && !claims.ExpiresAt.IsZero() {
			ttl = time.Until(claims.ExpiresAt)
		}
		if err := h.denylist.Revoke(c.Request().Context(), raw, ttl); err != nil {
			h.log.Warn().Err(err).Msg("token revocation failed, falling back to natural expiry")
		}
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Déconnexion réussie"})
}
