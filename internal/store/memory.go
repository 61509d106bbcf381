// Package store provides in-memory implementations of the domain stores with
// the same compare-and-set contract as the Postgres repositories, so the
// services can be exercised without a database.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/google/uuid"
)

// MemorySessionStore keeps verification sessions in a map guarded by a
// mutex. Versions increment on every committed update, exactly like the
// Postgres store.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.VerificationSession
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.VerificationSession)}
}

// Get returns a copy of the stored session so callers can mutate it freely
// before committing via Update.
func (m *MemorySessionStore) Get(_ context.Context, identity string) (*domain.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[identity]
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	return copySession(stored), nil
}

// Create inserts a session for an identity with no row.
func (m *MemorySessionStore) Create(_ context.Context, session *domain.VerificationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.Identity.Value]; ok {
		return domain.ErrAlreadyExists
	}
	session.Version = 1
	m.sessions[session.Identity.Value] = copySession(session)
	return nil
}

// Update commits iff the stored version matches session.Version. A missing
// row also counts as a conflict: a concurrent writer removed it.
func (m *MemorySessionStore) Update(_ context.Context, session *domain.VerificationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[session.Identity.Value]
	if !ok || stored.Version != session.Version {
		return domain.ErrConflict
	}
	session.Version++
	m.sessions[session.Identity.Value] = copySession(session)
	return nil
}

// DeleteExpired removes consumed and expired sessions.
func (m *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for identity, session := range m.sessions {
		if session.Consumed || session.IsExpired(now) {
			delete(m.sessions, identity)
			removed++
		}
	}
	return removed, nil
}

func copySession(s *domain.VerificationSession) *domain.VerificationSession {
	dup := *s
	dup.CodeHash = append([]byte(nil), s.CodeHash...)
	return &dup
}

// MemoryApplicationStore keeps application records in insertion order.
type MemoryApplicationStore struct {
	mu    sync.Mutex
	apps  map[uuid.UUID]*domain.Application
	order []uuid.UUID
}

// NewMemoryApplicationStore creates an empty in-memory application store.
func NewMemoryApplicationStore() *MemoryApplicationStore {
	return &MemoryApplicationStore{apps: make(map[uuid.UUID]*domain.Application)}
}

// Create inserts a new application.
func (m *MemoryApplicationStore) Create(_ context.Context, app *domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apps[app.ID]; ok {
		return domain.ErrAlreadyExists
	}
	app.Version = 1
	m.apps[app.ID] = copyApplication(app)
	m.order = append(m.order, app.ID)
	return nil
}

// Get returns a copy of the stored application.
func (m *MemoryApplicationStore) Get(_ context.Context, id uuid.UUID) (*domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.apps[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	return copyApplication(stored), nil
}

// Update commits iff the stored version matches app.Version.
func (m *MemoryApplicationStore) Update(_ context.Context, app *domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.apps[app.ID]
	if !ok {
		return domain.ErrApplicationNotFound
	}
	if stored.Version != app.Version {
		return domain.ErrConflict
	}
	app.Version++
	m.apps[app.ID] = copyApplication(app)
	return nil
}

// List returns matching applications in insertion order.
func (m *MemoryApplicationStore) List(_ context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []domain.Application
	for _, id := range m.order {
		app := m.apps[id]
		if filter.Matches(app) {
			result = append(result, *copyApplication(app))
		}
	}
	return result, nil
}

// CountByStatus counts matching applications per status. The filter's own
// Status field is ignored; the other fields still apply.
func (m *MemoryApplicationStore) CountByStatus(_ context.Context, filter domain.ApplicationFilter) (map[domain.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filter.Status = nil
	counts := make(map[domain.Status]int)
	for _, id := range m.order {
		app := m.apps[id]
		if filter.Matches(app) {
			counts[app.Status]++
		}
	}
	return counts, nil
}

func copyApplication(a *domain.Application) *domain.Application {
	dup := *a
	if a.InterviewDate != nil {
		d := *a.InterviewDate
		dup.InterviewDate = &d
	}
	return &dup
}
