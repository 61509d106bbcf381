package apps

import (
	"context"
	"errors"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/google/uuid"
)

// conflictRetries bounds how often SetStatus re-runs its check-then-commit
// after losing a compare-and-set race. The re-run evaluates the transition
// against the winner's committed state, so a transition that is no longer
// legal fails with InvalidTransitionError instead of overwriting.
const conflictRetries = 3

// SubmitInput carries everything needed to create a Pending application.
// Title, company and location are denormalized from the posting so the list
// projection can search without joining job storage.
type SubmitInput struct {
	JobID       uuid.UUID
	ApplicantID uuid.UUID
	EmployerID  uuid.UUID
	JobTitle    string
	Company     string
	Location    string
}

// Service owns the application status lifecycle: who may move a record
// along which edge, and the atomicity of each transition.
type Service struct {
	store domain.ApplicationStore
	now   func() time.Time
}

// NewService creates an application lifecycle service.
func NewService(store domain.ApplicationStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// Submit creates a new Pending application.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	now := s.now()
	app := &domain.Application{
		ID:                 uuid.New(),
		JobID:              in.JobID,
		ApplicantID:        in.ApplicantID,
		EmployerID:         in.EmployerID,
		Status:             domain.StatusPending,
		JobTitle:           in.JobTitle,
		Company:            in.Company,
		Location:           in.Location,
		CreatedAt:          now,
		LastStatusChangeAt: now,
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// SetStatus moves an application along one edge of the lifecycle graph.
// The actor's role must be permitted to drive the edge, the actor must own
// the relevant side of the record, and scheduling an interview requires a
// future interviewDate. The check-then-commit is atomic with respect to
// concurrent transitions on the same record.
func (s *Service) SetStatus(ctx context.Context, recordID uuid.UUID, newStatus domain.Status, actor domain.Actor, interviewDate *time.Time) (*domain.Application, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		app, err := s.store.Get(ctx, recordID)
		if err != nil {
			return nil, err
		}

		if !domain.ActorMayTransition(actor.Role, newStatus) {
			return nil, domain.ErrForbidden
		}
		switch actor.Role {
		case domain.RoleApplicant:
			if app.ApplicantID != actor.ID {
				return nil, domain.ErrForbidden
			}
		case domain.RoleEmployer:
			if app.EmployerID != actor.ID {
				return nil, domain.ErrForbidden
			}
		default:
			return nil, domain.ErrForbidden
		}

		if !domain.TransitionAllowed(app.Status, newStatus) {
			return nil, &domain.InvalidTransitionError{From: app.Status, To: newStatus}
		}

		now := s.now()
		if newStatus == domain.StatusInterviewScheduled {
			if interviewDate == nil || !interviewDate.After(now) {
				return nil, domain.ErrMissingInterviewDate
			}
			app.InterviewDate = interviewDate
		} else {
			// The date only means something while the interview is scheduled.
			app.InterviewDate = nil
		}

		app.Status = newStatus
		app.LastStatusChangeAt = now
		if err := s.store.Update(ctx, app); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return nil, err
		}
		return app, nil
	}
	return nil, domain.ErrConflict
}

// Withdraw moves an application to Withdrawn on behalf of its applicant.
// Fails with ErrForbidden when the record belongs to someone else.
func (s *Service) Withdraw(ctx context.Context, recordID, applicantID uuid.UUID) (*domain.Application, error) {
	actor := domain.Actor{ID: applicantID, Role: domain.RoleApplicant}
	return s.SetStatus(ctx, recordID, domain.StatusWithdrawn, actor, nil)
}

// Get returns a single application.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	return s.store.Get(ctx, id)
}

// List returns applications matching the filter in insertion order.
func (s *Service) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	return s.store.List(ctx, filter)
}

// CountByStatus returns how many matching applications sit in each status.
func (s *Service) CountByStatus(ctx context.Context, filter domain.ApplicationFilter) (map[domain.Status]int, error) {
	return s.store.CountByStatus(ctx, filter)
}
