package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/lib/pq"
)

// SessionsRepository persists verification sessions, one row per identity.
// Writes go through a version column compare-and-set; a plain read-then-write
// path is deliberately not provided.
type SessionsRepository struct {
	db Querier
}

// NewSessionsRepository creates a new verification sessions repository over a
// connection pool or an open transaction.
func NewSessionsRepository(db Querier) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Get retrieves the session for an identity, consumed or not.
func (r *SessionsRepository) Get(ctx context.Context, identity string) (*domain.VerificationSession, error) {
	query := `
		SELECT identity, kind, code_hash, issued_at, expires_at, resend_available_at,
		       attempt_count, consumed, version
		FROM verification_sessions
		WHERE identity = $1
	`
	session := &domain.VerificationSession{}
	err := r.db.QueryRowContext(ctx, query, identity).Scan(
		&session.Identity.Value, &session.Identity.Kind, &session.CodeHash,
		&session.IssuedAt, &session.ExpiresAt, &session.ResendAvailableAt,
		&session.AttemptCount, &session.Consumed, &session.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Create inserts a session for an identity that has no row yet.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.VerificationSession) error {
	query := `
		INSERT INTO verification_sessions
			(identity, kind, code_hash, issued_at, expires_at, resend_available_at,
			 attempt_count, consumed, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.Identity.Value, session.Identity.Kind, session.CodeHash,
		session.IssuedAt, session.ExpiresAt, session.ResendAvailableAt,
		session.AttemptCount, session.Consumed,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	session.Version = 1
	return nil
}

// Update overwrites the row iff the stored version matches session.Version.
func (r *SessionsRepository) Update(ctx context.Context, session *domain.VerificationSession) error {
	query := `
		UPDATE verification_sessions
		SET kind = $3, code_hash = $4, issued_at = $5, expires_at = $6,
		    resend_available_at = $7, attempt_count = $8, consumed = $9,
		    version = version + 1
		WHERE identity = $1 AND version = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		session.Identity.Value, session.Version, session.Identity.Kind,
		session.CodeHash, session.IssuedAt, session.ExpiresAt,
		session.ResendAvailableAt, session.AttemptCount, session.Consumed,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConflict
	}
	session.Version++
	return nil
}

// DeleteExpired removes consumed and expired rows.
func (r *SessionsRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM verification_sessions
		WHERE consumed OR expires_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
