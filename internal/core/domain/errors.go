package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUsageLimit        = errors.New("usage limit reached")
	ErrTemporary         = errors.New("temporary failure")
	ErrQuotaExceeded     = errors.New("provider quota exceeded")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FallbackReasonFor maps a provider failure to the reason reported by the
// recommender when it degrades to the heuristic path.
func FallbackReasonFor(err error) FallbackReason {
	switch {
	case err == nil:
		return FallbackNone
	case IsKind(err, ErrQuotaExceeded):
		return FallbackQuota
	case IsKind(err, ErrMalformedResponse):
		return FallbackMalformedResponse
	default:
		return FallbackTransport
	}
}
