package ports

import (
	"context"
	"time"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// UserRepository defines persistence operations for citizen accounts.
// Implementations return domain.ErrUserNotFound when no document matches
// and domain.ErrEmailTaken on unique-index violations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByPhoneVariants matches the phone field against any of the given
	// normalized forms (historical records are stored inconsistently).
	FindByPhoneVariants(ctx context.Context, variants []string) (*domain.User, error)
	FindByEmailAndPhone(ctx context.Context, email, phone string) (*domain.User, error)
	// FindByValidResetToken matches a reset token whose expiry is after now.
	FindByValidResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}
