package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job application.
//
// Valid status graph:
//
//	Pending ──► Reviewed ──► InterviewScheduled ──► Accepted
//	    │           │                 │
//	    └───────────┴─────────────────┴──► Rejected
//
// Pending may also jump straight to InterviewScheduled or Accepted, and any
// non-terminal state may move to Withdrawn (applicant only). Accepted,
// Rejected and Withdrawn are terminal.
type Status string

const (
	StatusPending            Status = "pending"
	StatusReviewed           Status = "reviewed"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusAccepted           Status = "accepted"
	StatusRejected           Status = "rejected"
	StatusWithdrawn          Status = "withdrawn"
)

// Role identifies which side of the marketplace an actor is on.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleEmployer  Role = "employer"
)

// Actor is the authenticated party attempting a status transition.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Application is a single applicant-to-job submission. JobTitle, Company and
// Location are denormalized from the posting for the list/search projection.
type Application struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	ApplicantID uuid.UUID
	EmployerID  uuid.UUID
	Status      Status
	// InterviewDate is set only while Status is InterviewScheduled.
	InterviewDate      *time.Time
	JobTitle           string
	Company            string
	Location           string
	CreatedAt          time.Time
	LastStatusChangeAt time.Time
	// Version is the optimistic-concurrency counter maintained by the store.
	Version int64
}

// validTransitions lists every allowed employer-driven (from → to) edge.
// Withdrawn is applicant-driven and handled separately; terminal states have
// no entry.
var validTransitions = map[Status][]Status{
	StatusPending:            {StatusReviewed, StatusInterviewScheduled, StatusAccepted, StatusRejected},
	StatusReviewed:           {StatusInterviewScheduled, StatusAccepted, StatusRejected},
	StatusInterviewScheduled: {StatusAccepted, StatusRejected},
}

// ParseStatus converts a raw string to a Status. "under review" is accepted
// as a presentation alias of Reviewed.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch Status(normalized) {
	case StatusPending, StatusReviewed, StatusInterviewScheduled, StatusAccepted, StatusRejected, StatusWithdrawn:
		return Status(normalized), nil
	}
	if normalized == "under_review" {
		return StatusReviewed, nil
	}
	return "", ErrUnknownStatus
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWithdrawn
}

// TransitionAllowed reports whether moving from → to is an edge of the
// lifecycle graph, ignoring actor permissions.
func TransitionAllowed(from, to Status) bool {
	if to == StatusWithdrawn {
		return !from.IsTerminal()
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActorMayTransition reports whether the actor's role is permitted to drive
// a transition to the given status: only applicants withdraw, only employers
// do everything else.
func ActorMayTransition(role Role, to Status) bool {
	if to == StatusWithdrawn {
		return role == RoleApplicant
	}
	return role == RoleEmployer
}
