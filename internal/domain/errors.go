package domain

import (
	"errors"
	"fmt"
	"time"
)

// Verification errors
var (
	ErrInvalidIdentity  = errors.New("identity is not a valid email address or phone number")
	ErrDispatchFailed   = errors.New("failed to deliver verification code")
	ErrNoActiveSession  = errors.New("no active verification session for this identity")
	ErrSessionExpired   = errors.New("verification code expired, request a new one")
	ErrAttemptsExceeded = errors.New("too many incorrect attempts, request a new code")
	ErrCodeMismatch     = errors.New("incorrect verification code")
)

// Application lifecycle errors
var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrForbidden            = errors.New("actor is not permitted to perform this action")
	ErrMissingInterviewDate = errors.New("a future interview date is required to schedule an interview")
	ErrUnknownStatus        = errors.New("unknown application status")
)

// Storage errors
var (
	ErrConflict      = errors.New("record was modified concurrently")
	ErrAlreadyExists = errors.New("record already exists")
)

// ResendTooSoonError is returned when a code is re-requested before the
// resend cooldown has elapsed. RetryAfter is the remaining cooldown.
type ResendTooSoonError struct {
	RetryAfter time.Duration
}

func (e *ResendTooSoonError) Error() string {
	return fmt.Sprintf("a code was sent recently, retry in %d seconds", e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the remaining cooldown rounded up to whole
// seconds, suitable for a Retry-After header.
func (e *ResendTooSoonError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// InvalidTransitionError is returned when a status change is not an edge of
// the application lifecycle graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move application from %q to %q", e.From, e.To)
}
