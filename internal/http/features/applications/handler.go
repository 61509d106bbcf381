package applications

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/apps"
	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/http/middleware"
	"github.com/careerdesk/careerdesk-backend/internal/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	logger  *slog.Logger
	service *apps.Service
}

func NewHandler(logger *slog.Logger, service *apps.Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

type SubmitRequest struct {
	JobID      string `json:"job_id"`
	EmployerID string `json:"employer_id"`
	JobTitle   string `json:"job_title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
}

type SetStatusRequest struct {
	Status        string     `json:"status"`
	InterviewDate *time.Time `json:"interview_date,omitempty"`
}

type ApplicationResponse struct {
	ID                 string     `json:"id"`
	JobID              string     `json:"job_id"`
	ApplicantID        string     `json:"applicant_id"`
	EmployerID         string     `json:"employer_id"`
	Status             string     `json:"status"`
	InterviewDate      *time.Time `json:"interview_date,omitempty"`
	JobTitle           string     `json:"job_title"`
	Company            string     `json:"company"`
	Location           string     `json:"location"`
	CreatedAt          time.Time  `json:"created_at"`
	LastStatusChangeAt time.Time  `json:"last_status_change_at"`
}

func toResponse(app *domain.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:                 app.ID.String(),
		JobID:              app.JobID.String(),
		ApplicantID:        app.ApplicantID.String(),
		EmployerID:         app.EmployerID.String(),
		Status:             string(app.Status),
		InterviewDate:      app.InterviewDate,
		JobTitle:           app.JobTitle,
		Company:            app.Company,
		Location:           app.Location,
		CreatedAt:          app.CreatedAt,
		LastStatusChangeAt: app.LastStatusChangeAt,
	}
}

// Submit creates a Pending application for the calling applicant.
// POST /v1/applications
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if actor.Role != domain.RoleApplicant {
		httputil.Error(w, http.StatusForbidden, "only applicants can submit applications")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "job_id must be a valid UUID")
		return
	}
	employerID, err := uuid.Parse(req.EmployerID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "employer_id must be a valid UUID")
		return
	}

	app, err := h.service.Submit(r.Context(), apps.SubmitInput{
		JobID:       jobID,
		ApplicantID: actor.ID,
		EmployerID:  employerID,
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		Location:    req.Location,
	})
	if err != nil {
		h.logger.Error("failed to submit application", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to submit application")
		return
	}

	h.logger.Info("application submitted", "application_id", app.ID, "job_id", app.JobID)

	httputil.JSON(w, http.StatusCreated, toResponse(app))
}

// List returns the caller's applications, filtered by status and a free-text
// query over job title, company and location.
// GET /v1/applications?status=...&q=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter, err := h.filterForActor(actor, r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list applications", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	result := make([]ApplicationResponse, 0, len(list))
	for i := range list {
		result = append(result, toResponse(&list[i]))
	}
	httputil.JSON(w, http.StatusOK, result)
}

// StatusCounts returns how many of the caller's applications sit in each
// status.
// GET /v1/applications/status-counts
func (h *Handler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter, err := h.filterForActor(actor, r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := h.service.CountByStatus(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to count applications", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to count applications")
		return
	}

	result := make(map[string]int, len(counts))
	for status, count := range counts {
		result[string(status)] = count
	}
	httputil.JSON(w, http.StatusOK, result)
}

// SetStatus moves an application along the lifecycle graph.
// PATCH /v1/applications/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "application id must be a valid UUID")
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	newStatus, err := domain.ParseStatus(req.Status)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := h.service.SetStatus(r.Context(), recordID, newStatus, actor, req.InterviewDate)
	if err != nil {
		h.respondTransitionError(w, err)
		return
	}

	h.logger.Info("application status changed",
		"application_id", app.ID, "status", app.Status, "actor_role", actor.Role)

	httputil.JSON(w, http.StatusOK, toResponse(app))
}

// Withdraw moves the caller's own application to Withdrawn.
// POST /v1/applications/{id}/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if actor.Role != domain.RoleApplicant {
		httputil.Error(w, http.StatusForbidden, "only the applicant may withdraw an application")
		return
	}

	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "application id must be a valid UUID")
		return
	}

	app, err := h.service.Withdraw(r.Context(), recordID, actor.ID)
	if err != nil {
		h.respondTransitionError(w, err)
		return
	}

	h.logger.Info("application withdrawn", "application_id", app.ID)

	httputil.JSON(w, http.StatusOK, toResponse(app))
}

func (h *Handler) respondTransitionError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrApplicationNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.Error(w, http.StatusForbidden, err.Error())
	case errors.As(err, &invalid):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMissingInterviewDate):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("failed to change application status", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to change application status")
	}
}

// filterForActor scopes the list projection to the caller's own side of the
// marketplace and applies the optional status and q query parameters.
func (h *Handler) filterForActor(actor domain.Actor, r *http.Request) (domain.ApplicationFilter, error) {
	filter := domain.ApplicationFilter{Query: r.URL.Query().Get("q")}

	switch actor.Role {
	case domain.RoleApplicant:
		filter.ApplicantID = &actor.ID
	case domain.RoleEmployer:
		filter.EmployerID = &actor.ID
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	return filter, nil
}
