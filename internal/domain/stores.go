package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStore persists verification sessions keyed by identity. Update is a
// compare-and-set on Version: implementations must return ErrConflict when
// the stored version differs, and must never fall back to blind writes.
type SessionStore interface {
	// Get returns the session for an identity, consumed or not.
	// Returns ErrNoActiveSession when no row exists.
	Get(ctx context.Context, identity string) (*VerificationSession, error)
	// Create inserts a session for an identity that has none.
	// Returns ErrAlreadyExists when a row is present.
	Create(ctx context.Context, session *VerificationSession) error
	// Update overwrites the session if the stored version matches
	// session.Version, then increments it. Returns ErrConflict otherwise.
	Update(ctx context.Context, session *VerificationSession) error
	// DeleteExpired removes consumed and expired rows. Storage hygiene
	// only; correctness never depends on it.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ApplicationFilter narrows the application list projection. Query is a
// case-insensitive substring match over job title, company and location.
type ApplicationFilter struct {
	ApplicantID *uuid.UUID
	EmployerID  *uuid.UUID
	Status      *Status
	Query       string
}

// ApplicationStore persists application records. Update follows the same
// compare-and-set contract as SessionStore.Update.
type ApplicationStore interface {
	Create(ctx context.Context, app *Application) error
	// Get returns ErrApplicationNotFound when no row exists.
	Get(ctx context.Context, id uuid.UUID) (*Application, error)
	// Update commits iff the stored version matches app.Version.
	Update(ctx context.Context, app *Application) error
	// List returns matching applications in insertion order.
	List(ctx context.Context, filter ApplicationFilter) ([]Application, error)
	CountByStatus(ctx context.Context, filter ApplicationFilter) (map[Status]int, error)
}

// Matches reports whether the application satisfies the filter. Shared by
// in-memory stores; the Postgres store expresses the same predicate in SQL.
func (f ApplicationFilter) Matches(app *Application) bool {
	if f.ApplicantID != nil && app.ApplicantID != *f.ApplicantID {
		return false
	}
	if f.EmployerID != nil && app.EmployerID != *f.EmployerID {
		return false
	}
	if f.Status != nil && app.Status != *f.Status {
		return false
	}
	if f.Query != "" {
		haystack := strings.ToLower(app.JobTitle + " " + app.Company + " " + app.Location)
		if !strings.Contains(haystack, strings.ToLower(f.Query)) {
			return false
		}
	}
	return true
}
