package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies HS256 JWTs.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

func (s *TokenService) Issue(claims ports.TokenClaims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = accessTokenTTL
	}
	mapClaims := jwt.MapClaims{
		"userId": claims.Subject,
		"role":   claims.Role,
		"iat":    s.now().Unix(),
		"exp":    s.now().Add(ttl).Unix(),
	}
	for k, v := range claims.Extra {
		mapClaims[k] = v
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return t.SignedString(s.secret)
}

// IssuePair returns a 24h access token and a 7d refresh token for the user.
func (s *TokenService) IssuePair(userID, role string) (ports.TokenPair, error) {
	access, err := s.Issue(ports.TokenClaims{Subject: userID, Role: role}, accessTokenTTL)
	if err != nil {
		return ports.TokenPair{}, err
	}
	refresh, err := s.Issue(ports.TokenClaims{Subject: userID, Role: role, Extra: map[string]any{"type": "refresh"}}, refreshTokenTTL)
	if err != nil {
		return ports.TokenPair{}, err
	}
	return ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses and validates a token. All failure modes collapse into
// domain.ErrInvalidToken so callers leak nothing about the cause.
func (s *TokenService) Verify(tokenString string) (ports.TokenClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ports.TokenClaims{}, domain.ErrInvalidToken
	}
	return claimsFromMap(mapClaims), nil
}

// Decode extracts claims without verifying the signature. Used to compute
// the remaining lifetime of a token being revoked.
func (s *TokenService) Decode(tokenString string) (ports.TokenClaims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return ports.TokenClaims{}, false
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ports.TokenClaims{}, false
	}
	return claimsFromMap(mapClaims), true
}

func claimsFromMap(m jwt.MapClaims) ports.TokenClaims {
	claims := ports.TokenClaims{Extra: map[string]any{}}
	for k, v := range m {
		switch k {
		case "userId":
			claims.Subject, _ = v.(string)
		case "role":
			claims.Role, _ = v.(string)
		case "exp":
			if exp, ok := v.(float64); ok {
				claims.ExpiresAt = time.Unix(int64(exp), 0)
			}
		default:
			claims.Extra[k] = v
		}
	}
	return claims
}
