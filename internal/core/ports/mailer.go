package ports

import "context"

// Mailer sends transactional email. When SMTP is not configured the
// implementation logs instead of sending.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, fullName, code string) error
	SendPasswordReset(ctx context.Context, to, fullName, resetURL string) error
	SendTemporaryPassword(ctx context.Context, to, fullName, password string) error
}

// SMSSender sends a short text message. The current implementation is
// simulated and only logs the payload.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}
