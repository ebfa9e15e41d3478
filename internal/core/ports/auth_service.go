package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// RegisterInput carries a registration request. At least one of Email/Phone
// must be present (enforced at the boundary and again by the service).
type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	User                *domain.User
	Tokens              TokenPair
	IsTemporaryPassword bool
}

// ProfileUpdate carries the allow-listed mutable profile fields. Nil means
// "leave unchanged"; anything else in the request is ignored upstream.
type ProfileUpdate struct {
	FullName       *string
	Phone          *string
	Region         *string
	ProfilePicture *string
}

// AuthService implements citizen identity operations.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	// Login accepts an email or Senegalese phone number as identifier.
	// No-match, disabled account and wrong password are indistinguishable
	// to the caller (domain.ErrInvalidCredentials).
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	// VerifyAccount checks the code against the first 6 characters of the
	// stored verification token, then marks the account verified.
	VerifyAccount(ctx context.Context, email, phone, code string) (*domain.User, error)
	// ResendVerificationCodes regenerates the verification token and
	// re-sends the code. Notification failures are not surfaced.
	ResendVerificationCodes(ctx context.Context, email, phone string) error
	// RequestPasswordReset issues a reset token valid for one hour. The
	// HTTP layer hides whether the account exists.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error)
	GetUserInfo(ctx context.Context, userID string) (*domain.User, error)
}
