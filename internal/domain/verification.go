package domain

import "time"

// IdentityKind distinguishes the delivery channel for a verification code.
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityPhone IdentityKind = "phone"
)

// Identity is a normalized email address or E.164 phone number. It is the
// key of an outstanding verification challenge: at most one active session
// exists per identity.
type Identity struct {
	Kind  IdentityKind
	Value string
}

func (i Identity) String() string {
	return i.Value
}

// VerificationSession is one outstanding one-time-code challenge. The code
// itself is never stored, only its bcrypt hash.
type VerificationSession struct {
	Identity          Identity
	CodeHash          []byte
	IssuedAt          time.Time
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	AttemptCount      int
	Consumed          bool
	// Version is the optimistic-concurrency counter maintained by the
	// session store; it is incremented on every committed update.
	Version int64
}

// IsExpired reports whether the session's code window has closed.
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ResendAllowed reports whether the resend cooldown has elapsed.
func (s *VerificationSession) ResendAllowed(now time.Time) bool {
	return !now.Before(s.ResendAvailableAt)
}

// Active reports whether the session can still accept verify attempts.
func (s *VerificationSession) Active(now time.Time) bool {
	return !s.Consumed && !s.IsExpired(now)
}
