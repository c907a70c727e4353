package service

import "errors"

const (
	// Text lives in a single item together with its metadata; DynamoDB caps
	// items at 400KB, so the text gets a comfortable margin below that.
	maxTextBytes   = 256 * 1024
	maxSecretBytes = 256

	// Lifetimes beyond a year are almost certainly a client bug.
	maxLifetimeComponentHours = 24 * 365
)

var (
	ErrEmptyText       = errors.New("note text must not be empty")
	ErrEmptySecret     = errors.New("note secret must not be empty")
	ErrTextTooLong     = errors.New("note text too long")
	ErrSecretTooLong   = errors.New("note secret too long")
	ErrInvalidLifetime = errors.New("invalid lifetime")
)

func ValidateNoteInput(text string, secret string, lifetimeHours int, lifetimeMinutes int, lifetimeSeconds int) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > maxTextBytes {
		return ErrTextTooLong
	}
	if secret == "" {
		return ErrEmptySecret
	}
	if len(secret) > maxSecretBytes {
		return ErrSecretTooLong
	}
	if lifetimeHours < 0 || lifetimeMinutes < 0 || lifetimeSeconds < 0 {
		return ErrInvalidLifetime
	}
	if lifetimeHours > maxLifetimeComponentHours {
		return ErrInvalidLifetime
	}
	return nil
}

// IsValidationError reports whether err is a caller error that should map
// to a 4xx response rather than a server failure.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyText),
		errors.Is(err, ErrEmptySecret),
		errors.Is(err, ErrTextTooLong),
		errors.Is(err, ErrSecretTooLong),
		errors.Is(err, ErrInvalidLifetime):
		return true
	}
	return false
}
