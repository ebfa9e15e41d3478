package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect identifier or password")
	ErrInvalidIdentifier  = errors.New("unrecognized identifier format")

	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrInvalidResetToken       = errors.New("invalid or expired reset token")

	ErrAlertNotFound      = errors.New("alert not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceInactive    = errors.New("service not found or inactive")
	ErrMissingCoordinates = errors.New("location coordinates are required")
	ErrMissingProofs      = errors.New("at least one proof is required")

	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
	ErrTooManyFiles        = errors.New("too many files")
)
