package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error)
	loginFn          func(ctx context.Context, identifier, password string) (*ports.AuthResult, error)
	verifyAccountFn  func(ctx context.Context, email, phone, code string) (*domain.User, error)
	resetRequestFn   func(ctx context.Context, email string) (string, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
	updateProfileFn  func(ctx context.Context, userID string, update ports.ProfileUpdate) (*domain.User, error)
	userInfoFn       func(ctx context.Context, userID string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, input)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAuthService) VerifyAccount(ctx context.Context, email, phone, code string) (*domain.User, error) {
	return s.verifyAccountFn(ctx, email, phone, code)
}

func (s *stubAuthService) ResendVerificationCodes(ctx context.Context, email, phone string) error {
	return nil
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return s.resetRequestFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error) {
	return &domain.User{}, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changePasswordFn(ctx, userID, current, next)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, update ports.ProfileUpdate) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, update)
}

func (s *stubAuthService) GetUserInfo(ctx context.Context, userID string) (*domain.User, error) {
	return s.userInfoFn(ctx, userID)
}

type stubTokenService struct {
	issueFn  func(claims ports.TokenClaims, ttl time.Duration) (string, error)
	verifyFn func(token string) (ports.TokenClaims, error)
	decodeFn func(token string) (ports.TokenClaims, bool)
}

func (s *stubTokenService) Issue(claims ports.TokenClaims, ttl time.Duration) (string, error) {
	if s.issueFn != nil {
		return s.issueFn(claims, ttl)
	}
	return "token", nil
}

func (s *stubTokenService) IssuePair(userID, role string) (ports.TokenPair, error) {
	return ports.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubTokenService) Verify(token string) (ports.TokenClaims, error) {
	if s.verifyFn != nil {
		return s.verifyFn(token)
	}
	return ports.TokenClaims{}, domain.ErrInvalidToken
}

func (s *stubTokenService) Decode(token string) (ports.TokenClaims, bool) {
	if s.decodeFn != nil {
		return s.decodeFn(token)
	}
	return ports.TokenClaims{}, false
}

type stubDenylist struct {
	revoked   map[string]time.Duration
	isRevoked bool
	revokeErr error
}

func (s *stubDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	if s.revoked == nil {
		s.revoked = make(map[string]time.Duration)
	}
	s.revoked[token] = ttl
	return nil
}

func (s *stubDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.isRevoked, nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			if input.FullName != "Awa Ndiaye" || input.Email != "awa@example.sn" {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &ports.AuthResult{
				User:   &domain.User{ID: "u1", FullName: input.FullName, Email: input.Email},
				Tokens: ports.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/register",
		`{"full_name":"Awa Ndiaye","email":"awa@example.sn","password":"secret1"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	tokens, ok := resp["tokens"].(map[string]any)
	if !ok || tokens["access_token"] != "access" {
		t.Fatalf("expected token pair in response: %+v", resp)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatal("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/register", `{"full_name":"A"}`)

	err := h.Register(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/register",
		`{"full_name":"Awa Ndiaye","email":"awa@example.sn","password":"secret1"}`)

	if err := h.Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken to propagate, got %v", err)
	}
}

func TestAuthHandler_Login_TemporaryPasswordFlagged(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
			if identifier != "771234567" {
				t.Fatalf("unexpected identifier %q", identifier)
			}
			return &ports.AuthResult{
				User:                &domain.User{ID: "u1"},
				Tokens:              ports.TokenPair{AccessToken: "access"},
				IsTemporaryPassword: true,
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/login",
		`{"identifier":"771234567","password":"temp"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["is_temporary_password"] != true {
		t.Fatalf("expected is_temporary_password=true: %+v", resp)
	}
}

func TestAuthHandler_LoginAnonymous(t *testing.T) {
	tokens := &stubTokenService{
		issueFn: func(claims ports.TokenClaims, ttl time.Duration) (string, error) {
			if claims.Role != domain.RoleAnonymous {
				t.Fatalf("expected anonymous role, got %q", claims.Role)
			}
			if !strings.HasPrefix(claims.Subject, "anon_") {
				t.Fatalf("expected synthetic subject, got %q", claims.Subject)
			}
			if v, _ := claims.Extra["isAnonymous"].(bool); !v {
				t.Fatalf("expected isAnonymous claim: %+v", claims.Extra)
			}
			return "anon-token", nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, tokens, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/login-anonymous", "")

	if err := h.LoginAnonymous(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "anon-token") {
		t.Fatalf("expected token in response: %s", rec.Body.String())
	}
}

func TestAuthHandler_VerifyToken_Revoked(t *testing.T) {
	tokens := &stubTokenService{
		verifyFn: func(token string) (ports.TokenClaims, error) {
			return ports.TokenClaims{Subject: "u1", Role: domain.RoleCitizen}, nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, tokens, &stubDenylist{isRevoked: true}, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/verify-token", `{"token":"revoked-token"}`)

	if err := h.VerifyToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp tokenStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Valid {
		t.Fatal("revoked token should not be valid")
	}
}

func TestAuthHandler_VerifyAccount_CodeMismatch(t *testing.T) {
	stub := &stubAuthService{
		verifyAccountFn: func(ctx context.Context, email, phone, code string) (*domain.User, error) {
			t.Fatal("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/verify-account",
		`{"email":"awa@example.sn","emailCode":"abc123","smsCode":"def456"}`)

	err := h.VerifyAccount(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_VerifyAccount_ChannelCodeAccepted(t *testing.T) {
	var got string
	stub := &stubAuthService{
		verifyAccountFn: func(ctx context.Context, email, phone, code string) (*domain.User, error) {
			got = code
			return &domain.User{ID: "u1", IsVerified: true}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/verify-account",
		`{"email":"awa@example.sn","emailCode":"abc123"}`)

	if err := h.VerifyAccount(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != "abc123" {
		t.Fatalf("expected emailCode to be used, got %q", got)
	}
}

func TestAuthHandler_ForgotPassword_NeverRevealsAccounts(t *testing.T) {
	stub := &stubAuthService{
		resetRequestFn: func(ctx context.Context, email string) (string, error) {
			return "", domain.ErrUserNotFound
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/forgot-password", `{"email":"ghost@example.sn"}`)

	if err := h.ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even for unknown accounts, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout_RevokesRemainingLifetime(t *testing.T) {
	expiry := time.Now().Add(2 * time.Hour)
	tokens := &stubTokenService{
		decodeFn: func(token string) (ports.TokenClaims, bool) {
			return ports.TokenClaims{Subject: "u1", ExpiresAt: expiry}, true
		},
	}
	denylist := &stubDenylist{}
	h := NewAuthHandler(&stubAuthService{}, tokens, denylist, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/logout", "")
	c.Set("token", "the-token")
	c.Set("userId", "u1")
	c.Set("role", domain.RoleCitizen)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	ttl, ok := denylist.revoked["the-token"]
	if !ok {
		t.Fatal("expected token to be revoked")
	}
	if ttl <= time.Hour || ttl > 2*time.Hour {
		t.Fatalf("expected ttl close to token lifetime, got %v", ttl)
	}
}

func TestAuthHandler_Logout_SucceedsWhenDenylistDown(t *testing.T) {
	tokens := &stubTokenService{
		decodeFn: func(token string) (ports.TokenClaims, bool) {
			return ports.TokenClaims{Subject: "u1", ExpiresAt: time.Now().Add(time.Hour)}, true
		},
	}
	denylist := &stubDenylist{revokeErr: errors.New("redis: connection refused")}
	h := NewAuthHandler(&stubAuthService{}, tokens, denylist, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/logout", "")
	c.Set("token", "the-token")
	c.Set("userId", "u1")
	c.Set("role", domain.RoleCitizen)

	// The token simply expires on its own when revocation cannot be
	// recorded; the client still gets a clean logout.
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Profile_AnonymousForbidden(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubTokenService{}, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodGet, "/profile", "")
	c.Set("userId", "anon_12345")
	c.Set("role", domain.RoleAnonymous)

	err := h.Profile(c)
	if code := httpCode(t, err); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestAuthHandler_UpdateProfile_PassesPointers(t *testing.T) {
	stub := &stubAuthService{
		updateProfileFn: func(ctx context.Context, userID string, update ports.ProfileUpdate) (*domain.User, error) {
			if update.FullName == nil || *update.FullName != "Moussa Diop" {
				t.Fatalf("expected full name update, got %+v", update)
			}
			if update.Phone != nil {
				t.Fatalf("phone should be untouched, got %q", *update.Phone)
			}
			return &domain.User{ID: userID, FullName: *update.FullName}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPut, "/profile", `{"full_name":"Moussa Diop"}`)
	c.Set("userId", "u1")
	c.Set("role", domain.RoleCitizen)

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
