package ports

import (
	"context"
	"time"
)

// TokenDenylist tracks revoked access tokens until their natural expiry.
// Backed by redis in production.
type TokenDenylist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}
