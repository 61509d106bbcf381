package verification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/httputil"
	"github.com/careerdesk/careerdesk-backend/internal/verify"
)

type Handler struct {
	logger  *slog.Logger
	service *verify.Service
}

func NewHandler(logger *slog.Logger, service *verify.Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

type RequestCodeRequest struct {
	Identity string `json:"identity"`
}

type RequestCodeResponse struct {
	Message           string    `json:"message"`
	Identity          string    `json:"identity"`
	ResendAvailableAt time.Time `json:"resend_available_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

type VerifyCodeRequest struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

type VerifyCodeResponse struct {
	Message  string `json:"message"`
	Identity string `json:"identity"`
	Verified bool   `json:"verified"`
}

// RequestCode issues and dispatches a one-time code.
// POST /v1/verification/request-code
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Identity == "" {
		httputil.Error(w, http.StatusBadRequest, "identity is required")
		return
	}

	session, err := h.service.RequestCode(r.Context(), req.Identity)
	if err != nil {
		var tooSoon *domain.ResendTooSoonError
		switch {
		case errors.Is(err, domain.ErrInvalidIdentity):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &tooSoon):
			w.Header().Set("Retry-After", strconv.Itoa(tooSoon.RetryAfterSeconds()))
			httputil.Error(w, http.StatusTooManyRequests, tooSoon.Error())
		case errors.Is(err, domain.ErrDispatchFailed):
			httputil.Error(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrConflict):
			httputil.Error(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to request code", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to request code")
		}
		return
	}

	h.logger.Info("verification code requested", "identity", session.Identity.Value)

	httputil.JSON(w, http.StatusOK, RequestCodeResponse{
		Message:           "Verification code sent",
		Identity:          session.Identity.Value,
		ResendAvailableAt: session.ResendAvailableAt,
		ExpiresAt:         session.ExpiresAt,
	})
}

// VerifyCode validates a submitted code.
// POST /v1/verification/verify
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Identity == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "identity and code are required")
		return
	}

	identity, err := h.service.VerifyCode(r.Context(), req.Identity, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidIdentity):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNoActiveSession):
			httputil.Error(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrSessionExpired):
			httputil.Error(w, http.StatusGone, err.Error())
		case errors.Is(err, domain.ErrAttemptsExceeded):
			httputil.Error(w, http.StatusGone, err.Error())
		case errors.Is(err, domain.ErrCodeMismatch):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrConflict):
			httputil.Error(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to verify code", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	h.logger.Info("identity verified", "identity", identity.Value)

	httputil.JSON(w, http.StatusOK, VerifyCodeResponse{
		Message:  "Identity verified successfully",
		Identity: identity.Value,
		Verified: true,
	})
}
