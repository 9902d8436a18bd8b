package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrEmailTaken               = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrAccountLocked            = errors.New("account is locked, please try again later")
	ErrEmailNotVerified         = errors.New("please verify your email first")
	ErrInvalidToken             = errors.New("invalid refresh token")
	ErrVerificationTokenInvalid = errors.New("invalid or expired verification token")
	ErrAlreadyVerified          = errors.New("email is already verified")
	ErrUnauthenticated          = errors.New("authentication required")

	ErrAccountNotFound = errors.New("user not found")
	ErrPostNotFound    = errors.New("post not found")

	ErrForbidden = errors.New("insufficient permissions")
)

var (
	ErrSuperAdminProtected = fmt.Errorf("%w: super admin accounts cannot be modified", ErrForbidden)
	ErrSelfModification    = fmt.Errorf("%w: cannot modify your own account", ErrForbidden)
)

// Validationf builds an ErrValidation carrying a client-facing message.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ValidationError is a malformed-input error with a message safe to return.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
