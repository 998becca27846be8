package verification

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the verification flow. Handlers map these to HTTP
// statuses; wrapped variants below carry retry/attempt details while still
// matching errors.Is against the sentinel.
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrDeliveryFailed  = errors.New("sms delivery failed")
	ErrNoActiveCode    = errors.New("no active verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeMismatch    = errors.New("verification code mismatch")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

// RateLimitedError tells the caller when the denied window resets. The
// message is identical for every phone so responses never reveal whether an
// identity already exists.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// MismatchError carries the attempts left before lockout, shown to the user.
type MismatchError struct {
	AttemptsRemaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("code mismatch, %d attempts remaining", e.AttemptsRemaining)
}

func (e *MismatchError) Unwrap() error { return ErrCodeMismatch }
