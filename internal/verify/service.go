package verify

import (
	"context"
	"errors"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
)

// Defaults for the verification state machine.
const (
	DefaultCodeTTL         = 10 * time.Minute
	DefaultResendCooldown  = 30 * time.Second
	DefaultMaxAttempts     = 5
	DefaultDispatchTimeout = 5 * time.Second
	DefaultRetryBackoff    = 250 * time.Millisecond
)

// conflictRetries bounds how often an operation re-runs its check-then-commit
// after losing a compare-and-set race.
const conflictRetries = 3

// CodeIssuer delivers a one-time code over the identity's channel. Opaque to
// the service beyond success, failure and timeout.
type CodeIssuer interface {
	Dispatch(ctx context.Context, identity domain.Identity, code string) error
}

// Config holds verification timing and limit knobs.
type Config struct {
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	MaxAttempts     int
	DispatchTimeout time.Duration
	RetryBackoff    time.Duration
}

// Service owns the verification-session state machine: code issuance with a
// resend cooldown, bounded verify attempts and one-time consumption.
type Service struct {
	config   Config
	sessions domain.SessionStore
	issuer   CodeIssuer
	now      func() time.Time
}

// NewService creates a verification service. Zero config fields fall back to
// the package defaults.
func NewService(config Config, sessions domain.SessionStore, issuer CodeIssuer) *Service {
	if config.CodeTTL == 0 {
		config.CodeTTL = DefaultCodeTTL
	}
	if config.ResendCooldown == 0 {
		config.ResendCooldown = DefaultResendCooldown
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.DispatchTimeout == 0 {
		config.DispatchTimeout = DefaultDispatchTimeout
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	return &Service{
		config:   config,
		sessions: sessions,
		issuer:   issuer,
		now:      time.Now,
	}
}

// RequestCode issues a one-time code for an email address or phone number
// and dispatches it. An active session inside its resend cooldown fails with
// ResendTooSoonError; past the cooldown the prior session is superseded.
// Nothing is committed unless dispatch succeeded, so a delivery failure never
// leaves a session with no corresponding sent code.
func (s *Service) RequestCode(ctx context.Context, rawIdentity string) (*domain.VerificationSession, error) {
	identity, err := NormalizeIdentity(rawIdentity)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < conflictRetries; attempt++ {
		now := s.now()

		prior, err := s.sessions.Get(ctx, identity.Value)
		if err != nil && !errors.Is(err, domain.ErrNoActiveSession) {
			return nil, err
		}
		if prior != nil && prior.Active(now) && !prior.ResendAllowed(now) {
			return nil, &domain.ResendTooSoonError{RetryAfter: prior.ResendAvailableAt.Sub(now)}
		}

		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		hash, err := HashCode(code)
		if err != nil {
			return nil, err
		}

		if err := s.dispatch(ctx, identity, code); err != nil {
			return nil, err
		}

		session := &domain.VerificationSession{
			Identity:          identity,
			CodeHash:          hash,
			IssuedAt:          now,
			ExpiresAt:         now.Add(s.config.CodeTTL),
			ResendAvailableAt: now.Add(s.config.ResendCooldown),
		}
		if prior == nil {
			err = s.sessions.Create(ctx, session)
			if errors.Is(err, domain.ErrAlreadyExists) {
				// A concurrent requester committed first; re-evaluate the
				// cooldown against their session.
				continue
			}
		} else {
			session.Version = prior.Version
			err = s.sessions.Update(ctx, session)
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, domain.ErrConflict
}

// VerifyCode validates a submitted code against the identity's outstanding
// session. Every attempt, right or wrong, counts against the cap; the
// attempt that exhausts the cap invalidates the session. A successful match
// consumes the session, so a second call fails with ErrNoActiveSession.
func (s *Service) VerifyCode(ctx context.Context, rawIdentity, submittedCode string) (domain.Identity, error) {
	identity, err := NormalizeIdentity(rawIdentity)
	if err != nil {
		return domain.Identity{}, err
	}

	for attempt := 0; attempt < conflictRetries; attempt++ {
		now := s.now()

		session, err := s.sessions.Get(ctx, identity.Value)
		if err != nil {
			return identity, err
		}
		if session.Consumed {
			return identity, domain.ErrNoActiveSession
		}
		if session.IsExpired(now) {
			s.invalidate(ctx, session)
			return identity, domain.ErrSessionExpired
		}
		if session.AttemptCount >= s.config.MaxAttempts {
			s.invalidate(ctx, session)
			return identity, domain.ErrAttemptsExceeded
		}

		session.AttemptCount++
		if !CodeMatches(session.CodeHash, submittedCode) {
			if session.AttemptCount >= s.config.MaxAttempts {
				session.Consumed = true
				if err := s.commit(ctx, session); err != nil {
					if errors.Is(err, domain.ErrConflict) {
						continue
					}
					return identity, err
				}
				return identity, domain.ErrAttemptsExceeded
			}
			if err := s.commit(ctx, session); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					continue
				}
				return identity, err
			}
			return identity, domain.ErrCodeMismatch
		}

		session.Consumed = true
		if err := s.commit(ctx, session); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return identity, err
		}
		return identity, nil
	}
	return identity, domain.ErrConflict
}

// SweepExpired removes consumed and expired sessions. Hygiene only; expiry
// is always re-checked on access.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

func (s *Service) commit(ctx context.Context, session *domain.VerificationSession) error {
	return s.sessions.Update(ctx, session)
}

// invalidate marks a session consumed, best effort. Losing the race means a
// concurrent writer already superseded or consumed it.
func (s *Service) invalidate(ctx context.Context, session *domain.VerificationSession) {
	session.Consumed = true
	_ = s.sessions.Update(ctx, session)
}

// dispatch sends the code with a bounded timeout, retrying once after a
// short backoff when the first attempt timed out.
func (s *Service) dispatch(ctx context.Context, identity domain.Identity, code string) error {
	err := s.dispatchOnce(ctx, identity, code)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		select {
		case <-time.After(s.config.RetryBackoff):
		case <-ctx.Done():
			return domain.ErrDispatchFailed
		}
		if err := s.dispatchOnce(ctx, identity, code); err == nil {
			return nil
		}
	}
	return domain.ErrDispatchFailed
}

func (s *Service) dispatchOnce(ctx context.Context, identity domain.Identity, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.DispatchTimeout)
	defer cancel()
	return s.issuer.Dispatch(ctx, identity, code)
}
