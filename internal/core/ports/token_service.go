package ports

import "time"

// TokenClaims is the payload carried by a bearer token.
type TokenClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
	// Extra carries any additional claims (e.g. is_anonymous).
	Extra map[string]any
}

// TokenPair is the access/refresh pair issued on registration and login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates signed, time-limited bearer tokens.
// It is stateless; the signing secret is process-wide configuration.
type TokenService interface {
	// Issue signs the claims with the given ttl (default 24h when ttl <= 0).
	Issue(claims TokenClaims, ttl time.Duration) (string, error)
	// IssuePair issues the standard access (24h) + refresh (7d) pair for a user.
	IssuePair(userID, role string) (TokenPair, error)
	// Verify validates signature and expiry. Every failure mode (malformed,
	// wrong signature, expired) yields domain.ErrInvalidToken; callers are
	// not told which.
	Verify(token string) (TokenClaims, error)
	// Decode parses without verifying. Diagnostics only.
	Decode(token string) (TokenClaims, bool)
}
