package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures independently of their display text.
type Kind int

const (
	KindDependency Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindConflict
	KindRateLimited
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindConfiguration:
		return "configuration"
	default:
		return "dependency"
	}
}

// Error is a classified failure. Message is safe to show to callers; Err is not.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrDuplicateEmail       = &Error{Kind: KindConflict, Message: "user already registered"}
	ErrInvalidCredentials   = &Error{Kind: KindAuthentication, Message: "invalid email or password"}
	ErrIncorrectPassword    = &Error{Kind: KindValidation, Message: "current password is incorrect"}
	ErrInvalidToken         = &Error{Kind: KindAuthentication, Message: "invalid or expired token"}
	ErrUnauthorized         = &Error{Kind: KindAuthentication, Message: "unauthorized"}
	ErrTooManyAttempts      = &Error{Kind: KindRateLimited, Message: "too many attempts, try again later"}
	ErrConfigurationMissing = &Error{Kind: KindConfiguration, Message: "configuration missing"}
)

// Validationf builds a validation error with a caller-visible message.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps an infrastructure failure (store, signer, object storage).
func Dependency(op string, err error) error {
	return &Error{Kind: KindDependency, Message: op, Err: err}
}

// MissingConfig reports an absent mandatory setting.
func MissingConfig(key string) error {
	return fmt.Errorf("%s: %w", key, ErrConfigurationMissing)
}

// KindOf classifies err; anything unclassified is a dependency failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// MessageOf returns the caller-visible message of the outermost classified error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
