package handler

import (
	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth requests ---

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,min=2"`
	Email    string `json:"email"     validate:"omitempty,email"`
	Phone    string `json:"phone"     validate:"omitempty"`
	Password string `json:"password"  validate:"required,min=6"`
}

type loginRequest struct {
	// Identifier is an email address or a Senegalese phone number.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required"`
}

type verifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type verifyAccountRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	// Code is the 6-character verification code. EmailCode/SMSCode are
	// accepted for frontend compatibility; when both are set they must agree.
	Code      string `json:"code"`
	EmailCode string `json:"emailCode"`
	SMSCode   string `json:"smsCode"`
}

type resendCodesRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"        validate:"required"`
	Password string `json:"new_password" validate:"required,min=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6"`
}

type updateProfileRequest struct {
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	Region         *string `json:"region"`
	ProfilePicture *string `json:"profile_picture"`
}

// --- Auth responses ---

type authResponse struct {
	User                *domain.User    `json:"user"`
	Tokens              ports.TokenPair `json:"tokens"`
	IsTemporaryPassword bool            `json:"is_temporary_password,omitempty"`
}

type anonymousSessionResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type tokenStatusResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}
