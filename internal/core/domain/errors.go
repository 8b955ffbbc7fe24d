package domain

import "errors"

var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrDigestDecode       = errors.New("malformed password digest")

	ErrOAuthState            = errors.New("oauth state missing or expired")
	ErrOAuthProfile          = errors.New("oauth profile unusable")
	ErrOAuthAccountNotLinked = errors.New("email already registered with another sign-in method")
	ErrProviderNotFound      = errors.New("identity provider not found")
)

// ValidationError describes malformed registration input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
