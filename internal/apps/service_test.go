package apps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/store"
	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *store.MemoryApplicationStore) {
	t.Helper()
	st := store.NewMemoryApplicationStore()
	return NewService(st), st
}

func submit(t *testing.T, svc *Service, applicant, employer uuid.UUID) *domain.Application {
	t.Helper()
	app, err := svc.Submit(context.Background(), SubmitInput{
		JobID:       uuid.New(),
		ApplicantID: applicant,
		EmployerID:  employer,
		JobTitle:    "Backend Engineer",
		Company:     "Acme",
		Location:    "Berlin",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return app
}

func futureDate(t *testing.T) *time.Time {
	t.Helper()
	d := time.Now().Add(72 * time.Hour)
	return &d
}

func TestSubmit_CreatesPending(t *testing.T) {
	svc, _ := newTestService(t)
	applicant, employer := uuid.New(), uuid.New()

	app := submit(t, svc, applicant, employer)
	if app.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", app.Status)
	}
	if app.CreatedAt.IsZero() || app.LastStatusChangeAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestSetStatus_EmployerTransitions(t *testing.T) {
	tests := []struct {
		name    string
		through []domain.Status
	}{
		{name: "full pipeline", through: []domain.Status{domain.StatusReviewed, domain.StatusInterviewScheduled, domain.StatusAccepted}},
		{name: "straight accept", through: []domain.Status{domain.StatusAccepted}},
		{name: "straight reject", through: []domain.Status{domain.StatusRejected}},
		{name: "skip review to interview", through: []domain.Status{domain.StatusInterviewScheduled, domain.StatusRejected}},
		{name: "reject after review", through: []domain.Status{domain.StatusReviewed, domain.StatusRejected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			applicant, employer := uuid.New(), uuid.New()
			app := submit(t, svc, applicant, employer)
			actor := domain.Actor{ID: employer, Role: domain.RoleEmployer}

			for _, next := range tt.through {
				var date *time.Time
				if next == domain.StatusInterviewScheduled {
					date = futureDate(t)
				}
				updated, err := svc.SetStatus(context.Background(), app.ID, next, actor, date)
				if err != nil {
					t.Fatalf("SetStatus(%q) failed: %v", next, err)
				}
				if updated.Status != next {
					t.Fatalf("Status = %q, want %q", updated.Status, next)
				}
			}
		})
	}
}

func TestSetStatus_TerminalStatesAreFinal(t *testing.T) {
	terminals := []domain.Status{domain.StatusAccepted, domain.StatusRejected}

	for _, terminal := range terminals {
		t.Run(string(terminal), func(t *testing.T) {
			svc, _ := newTestService(t)
			applicant, employer := uuid.New(), uuid.New()
			app := submit(t, svc, applicant, employer)
			employerActor := domain.Actor{ID: employer, Role: domain.RoleEmployer}

			if _, err := svc.SetStatus(context.Background(), app.ID, terminal, employerActor, nil); err != nil {
				t.Fatalf("SetStatus(%q) failed: %v", terminal, err)
			}

			for _, next := range []domain.Status{domain.StatusPending, domain.StatusReviewed, domain.StatusInterviewScheduled, domain.StatusAccepted, domain.StatusRejected} {
				if next == terminal {
					continue
				}
				_, err := svc.SetStatus(context.Background(), app.ID, next, employerActor, futureDate(t))
				var invalid *domain.InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Errorf("SetStatus(%q→%q) error = %v, want InvalidTransitionError", terminal, next, err)
					continue
				}
				if invalid.From != terminal || invalid.To != next {
					t.Errorf("InvalidTransitionError = {%s %s}, want {%s %s}", invalid.From, invalid.To, terminal, next)
				}
			}

			// Withdrawal from a terminal state is equally final.
			if _, err := svc.Withdraw(context.Background(), app.ID, applicant); err == nil {
				t.Errorf("Withdraw from %q succeeded, want error", terminal)
			}
		})
	}
}

func TestSetStatus_ActorPermissions(t *testing.T) {
	svc, _ := newTestService(t)
	applicant, employer := uuid.New(), uuid.New()
	app := submit(t, svc, applicant, employer)
	ctx := context.Background()

	// Employers may not withdraw.
	employerActor := domain.Actor{ID: employer, Role: domain.RoleEmployer}
	if _, err := svc.SetStatus(ctx, app.ID, domain.StatusWithdrawn, employerActor, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("employer withdrawal error = %v, want ErrForbidden", err)
	}

	// Applicants may not drive employer transitions.
	applicantActor := domain.Actor{ID: applicant, Role: domain.RoleApplicant}
	if _, err := svc.SetStatus(ctx, app.ID, domain.StatusReviewed, applicantActor, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("applicant review error = %v, want ErrForbidden", err)
	}

	// A different employer does not own the posting.
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleEmployer}
	if _, err := svc.SetStatus(ctx, app.ID, domain.StatusReviewed, stranger, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign employer error = %v, want ErrForbidden", err)
	}

	// The record is untouched by the rejected attempts.
	got, err := svc.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestSetStatus_InterviewDateRequired(t *testing.T) {
	svc, _ := newTestService(t)
	applicant, employer := uuid.New(), uuid.New()
	app := submit(t, svc, applicant, employer)
	actor := domain.Actor{ID: employer, Role: domain.RoleEmployer}
	ctx := context.Background()

	if _, err := svc.SetStatus(ctx, app.ID, domain.StatusInterviewScheduled, actor, nil); !errors.Is(err, domain.ErrMissingInterviewDate) {
		t.Errorf("nil date error = %v, want ErrMissingInterviewDate", err)
	}

	past := time.Now().Add(-time.Hour)
	if _, err := svc.SetStatus(ctx, app.ID, domain.StatusInterviewScheduled, actor, &past); !errors.Is(err, domain.ErrMissingInterviewDate) {
		t.Errorf("past date error = %v, want ErrMissingInterviewDate", err)
	}

	date := futureDate(t)
	updated, err := svc.SetStatus(ctx, app.ID, domain.StatusInterviewScheduled, actor, date)
	if err != nil {
		t.Fatalf("future date failed: %v", err)
	}
	if updated.InterviewDate == nil || !updated.InterviewDate.Equal(*date) {
		t.Errorf("InterviewDate = %v, want %v", updated.InterviewDate, date)
	}

	// The date is cleared once the record leaves InterviewScheduled.
	accepted, err := svc.SetStatus(ctx, app.ID, domain.StatusAccepted, actor, nil)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.InterviewDate != nil {
		t.Errorf("InterviewDate after accept = %v, want nil", accepted.InterviewDate)
	}
	got, err := svc.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.InterviewDate != nil {
		t.Errorf("stored InterviewDate = %v, want nil", got.InterviewDate)
	}
}

func TestWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	applicant, employer := uuid.New(), uuid.New()
	app := submit(t, svc, applicant, employer)
	ctx := context.Background()

	// Someone else's applicant ID fails the ownership check.
	if _, err := svc.Withdraw(ctx, app.ID, uuid.New()); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign withdrawal error = %v, want ErrForbidden", err)
	}

	updated, err := svc.Withdraw(ctx, app.ID, applicant)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if updated.Status != domain.StatusWithdrawn {
		t.Errorf("Status = %q, want withdrawn", updated.Status)
	}

	// Withdrawal is a status, not a deletion: the record survives.
	got, err := svc.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get after withdrawal failed: %v", err)
	}
	if got.Status != domain.StatusWithdrawn {
		t.Errorf("Status = %q, want withdrawn", got.Status)
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleEmployer}

	if _, err := svc.SetStatus(context.Background(), uuid.New(), domain.StatusReviewed, actor, nil); !errors.Is(err, domain.ErrApplicationNotFound) {
		t.Errorf("SetStatus on missing record error = %v, want ErrApplicationNotFound", err)
	}
}

// conflictingStore lets one Update slip through a concurrent commit: the
// first Update call applies a competing transition and reports ErrConflict,
// so the service has to re-evaluate against the post-commit state.
type conflictingStore struct {
	*store.MemoryApplicationStore
	competing domain.Status
	fired     bool
}

func (c *conflictingStore) Update(ctx context.Context, app *domain.Application) error {
	if !c.fired {
		c.fired = true
		winner, err := c.MemoryApplicationStore.Get(ctx, app.ID)
		if err != nil {
			return err
		}
		winner.Status = c.competing
		winner.LastStatusChangeAt = time.Now()
		if err := c.MemoryApplicationStore.Update(ctx, winner); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return c.MemoryApplicationStore.Update(ctx, app)
}

func TestSetStatus_ConcurrentLoserSeesCommittedState(t *testing.T) {
	applicant, employer := uuid.New(), uuid.New()
	base := store.NewMemoryApplicationStore()
	cs := &conflictingStore{MemoryApplicationStore: base, competing: domain.StatusAccepted}
	svc := NewService(cs)
	ctx := context.Background()

	app := submit(t, svc, applicant, employer)

	// This call loses the race against a concurrent Accepted commit. On
	// re-evaluation Accepted→Rejected is illegal, so it must fail with
	// InvalidTransitionError rather than overwrite the winner.
	actor := domain.Actor{ID: employer, Role: domain.RoleEmployer}
	_, err := svc.SetStatus(ctx, app.ID, domain.StatusRejected, actor, nil)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("losing SetStatus error = %v, want InvalidTransitionError", err)
	}
	if invalid.From != domain.StatusAccepted || invalid.To != domain.StatusRejected {
		t.Errorf("InvalidTransitionError = {%s %s}, want {accepted rejected}", invalid.From, invalid.To)
	}

	got, err := svc.Get(ctx, app.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusAccepted {
		t.Errorf("Status = %q, want the winner's accepted", got.Status)
	}
}

func TestList_Projections(t *testing.T) {
	svc, _ := newTestService(t)
	applicant, employer := uuid.New(), uuid.New()
	ctx := context.Background()

	first := submit(t, svc, applicant, employer)
	second := submit(t, svc, applicant, employer)
	employerActor := domain.Actor{ID: employer, Role: domain.RoleEmployer}
	if _, err := svc.SetStatus(ctx, second.ID, domain.StatusRejected, employerActor, nil); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	pending := domain.StatusPending
	list, err := svc.List(ctx, domain.ApplicationFilter{ApplicantID: &applicant, Status: &pending})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Errorf("List returned %d records, want exactly the pending one", len(list))
	}

	counts, err := svc.CountByStatus(ctx, domain.ApplicationFilter{ApplicantID: &applicant})
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[domain.StatusPending] != 1 || counts[domain.StatusRejected] != 1 {
		t.Errorf("counts = %v, want one pending and one rejected", counts)
	}
}
