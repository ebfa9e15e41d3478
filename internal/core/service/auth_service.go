package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

const resetTokenTTL = time.Hour

// AuthService implements citizen registration, login and account recovery.
type AuthService struct {
	users       ports.UserRepository
	tokens      ports.TokenService
	mailer      ports.Mailer
	sms         ports.SMSSender
	frontendURL string
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenService,
	mailer ports.Mailer,
	sms ports.SMSSender,
	frontendURL string,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		sms:         sms,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*ports.AuthResult, error) {
	now := s.now().UTC()
	user := &domain.User{
		FullName:          input.FullName,
		Email:             input.Email,
		Phone:             input.Phone,
		Role:              domain.RoleCitizen,
		IsActive:          true,
		Location:          domain.DefaultLocation(),
		VerificationToken: randomToken(),
		Notifications:     domain.NotificationPreferences{Email: true, SMS: true, Push: true},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !user.HasContact() {
		return nil, domain.ErrInvalidIdentifier
	}

	if user.Email != "" {
		if _, err := s.users.FindByEmail(ctx, user.Email); err == nil {
			return nil, domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = string(hash)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	// Verification code delivery is best effort: a mail outage must not
	// block registration.
	s.sendVerificationCode(ctx, created)

	pair, err := s.tokens.IssuePair(created.ID, created.Role)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("email", created.Email).Msg("citizen registered")

	return &ports.AuthResult{User: created, Tokens: pair}, nil
}

// Login accepts an email or a Senegalese phone number. Unknown identifier,
// wrong password and deactivated account all surface as the same
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*ports.AuthResult, error) {
	ident, err := domain.ClassifyIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	switch ident.Kind {
	case domain.IdentifierEmail:
		user, err = s.users.FindByEmail(ctx, ident.Value)
	case domain.IdentifierPhone:
		user, err = s.users.FindByPhoneVariants(ctx, domain.PhoneVariants(ident.Value))
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// Deactivated accounts answer exactly like unknown ones: the login
	// surface never reveals whether an identifier is registered.
	if !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user.LastLogin = s.now().UTC()
	user.UpdatedAt = user.LastLogin
	if err := s.users.Update(ctx, user); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &ports.AuthResult{User: user, Tokens: pair, IsTemporaryPassword: user.IsTemporaryPassword}, nil
}

// VerifyAccount checks the submitted code against the first six characters
// of the stored verification token.
func (s *AuthService) VerifyAccount(ctx context.Context, email, phone, code string) (*domain.User, error) {
	user, err := s.users.FindByEmailAndPhone(ctx, email, phone)
	if err != nil {
		return nil, err
	}

	if len(user.VerificationToken) < verificationCodeLength || user.VerificationToken[:verificationCodeLength] != code {
		return nil, domain.ErrInvalidVerificationCode
	}

	user.IsVerified = true
	user.VerificationToken = ""
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("account verified")
	return user, nil
}

// ResendVerificationCodes regenerates the token so a fresh code is always
// delivered, even when a previous one is still pending.
func (s *AuthService) ResendVerificationCodes(ctx context.Context, email, phone string) error {
	user, err := s.users.FindByEmailAndPhone(ctx, email, phone)
	if err != nil {
		return err
	}

	user.VerificationToken = randomToken()
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.sendVerificationCode(ctx, user)
	return nil
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	user.ResetPasswordToken = randomToken()
	user.ResetPasswordExpires = s.now().UTC().Add(resetTokenTTL)
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, user.ResetPasswordToken)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName, resetURL); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send password reset email")
	}

	return user.ResetPasswordToken, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error) {
	user, err := s.users.FindByValidResetToken(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpires = time.Time{}
	user.IsTemporaryPassword = false
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hash)
	user.IsTemporaryPassword = false
	user.UpdatedAt = s.now().UTC()
	return s.users.Update(ctx, user)
}

// UpdateProfile applies only allow-listed fields; everything else in the
// request has already been discarded by the handler schema.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update ports.ProfileUpdate) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Region != nil {
		user.Region = *update.Region
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetUserInfo(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

const verificationCodeLength = 6

func (s *AuthService) sendVerificationCode(ctx context.Context, user *domain.User) {
	if len(user.VerificationToken) < verificationCodeLength {
		return
	}
	code := user.VerificationToken[:verificationCodeLength]

	if user.Email != "" {
		if err := s.mailer.SendVerificationCode(ctx, user.Email, user.FullName, code); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification email")
		}
	}
	if user.Phone != "" {
		if err := s.sms.SendCode(ctx, user.Phone, code); err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification sms")
		}
	}
}

// randomToken returns a 64-char hex token (32 random bytes).
func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
