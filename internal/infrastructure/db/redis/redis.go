// Package redis backs the token denylist that makes logout effective
// before a JWT expires.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the startup liveness check. The denylist itself
// degrades open when redis goes away later, so only the initial dial is
// strict.
const pingTimeout = 5 * time.Second

type Config struct {
	Addr string
	DB   int
}

// Connect builds a client and verifies the server answers before the
// denylist is wired into the auth middleware.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DB:          cfg.DB,
		DialTimeout: pingTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
