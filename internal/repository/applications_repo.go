package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ApplicationsRepository persists application records. Status commits go
// through a version column compare-and-set so concurrent transitions on the
// same record serialize.
type ApplicationsRepository struct {
	db Querier
}

// NewApplicationsRepository creates a new applications repository over a
// connection pool or an open transaction.
func NewApplicationsRepository(db Querier) *ApplicationsRepository {
	return &ApplicationsRepository{db: db}
}

const applicationColumns = `
	id, job_id, applicant_id, employer_id, status, interview_date,
	job_title, company, location, created_at, last_status_change_at, version
`

// Create inserts a new application.
func (r *ApplicationsRepository) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications
			(id, job_id, applicant_id, employer_id, status, interview_date,
			 job_title, company, location, created_at, last_status_change_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
	`
	_, err := r.db.ExecContext(ctx, query,
		app.ID, app.JobID, app.ApplicantID, app.EmployerID, app.Status,
		app.InterviewDate, app.JobTitle, app.Company, app.Location,
		app.CreatedAt, app.LastStatusChangeAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	app.Version = 1
	return nil
}

// Get retrieves an application by ID.
func (r *ApplicationsRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	app := &domain.Application{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&app.ID, &app.JobID, &app.ApplicantID, &app.EmployerID, &app.Status,
		&app.InterviewDate, &app.JobTitle, &app.Company, &app.Location,
		&app.CreatedAt, &app.LastStatusChangeAt, &app.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Update overwrites the mutable fields iff the stored version matches
// app.Version.
func (r *ApplicationsRepository) Update(ctx context.Context, app *domain.Application) error {
	query := `
		UPDATE applications
		SET status = $3, interview_date = $4, last_status_change_at = $5,
		    version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		app.ID, app.Version, app.Status, app.InterviewDate, app.LastStatusChangeAt,
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
	app.Version++
	return nil
}

// List returns matching applications in insertion order.
func (r *ApplicationsRepository) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	where, args := filterClauses(filter)
	query += where + ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Application
	for rows.Next() {
		var app domain.Application
		if err := rows.Scan(
			&app.ID, &app.JobID, &app.ApplicantID, &app.EmployerID, &app.Status,
			&app.InterviewDate, &app.JobTitle, &app.Company, &app.Location,
			&app.CreatedAt, &app.LastStatusChangeAt, &app.Version,
		); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

// CountByStatus counts matching applications per status. The filter's own
// Status field is ignored; the other fields still apply.
func (r *ApplicationsRepository) CountByStatus(ctx context.Context, filter domain.ApplicationFilter) (map[domain.Status]int, error) {
	filter.Status = nil
	where, args := filterClauses(filter)
	query := `SELECT status, COUNT(*) FROM applications` + where + ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// likeEscaper neutralizes LIKE metacharacters so the search query matches
// literally, the same contract the in-memory store implements with a plain
// substring check.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// filterClauses builds the WHERE clause for the filter. Query matches a
// case-insensitive literal substring over the denormalized posting fields.
func filterClauses(filter domain.ApplicationFilter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ApplicantID != nil {
		add("applicant_id = $%d", *filter.ApplicantID)
	}
	if filter.EmployerID != nil {
		add("employer_id = $%d", *filter.EmployerID)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.Query != "" {
		add("(job_title || ' ' || company || ' ' || location) ILIKE $%d", "%"+likeEscaper.Replace(filter.Query)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}
