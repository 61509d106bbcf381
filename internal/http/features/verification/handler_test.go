package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
	"github.com/careerdesk/careerdesk-backend/internal/store"
	"github.com/careerdesk/careerdesk-backend/internal/verify"
)

type stubIssuer struct {
	mu       sync.Mutex
	lastCode string
	err      error
}

func (s *stubIssuer) Dispatch(ctx context.Context, identity domain.Identity, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lastCode = code
	return nil
}

func (s *stubIssuer) code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

func newTestHandler(t *testing.T) (*Handler, *stubIssuer) {
	t.Helper()
	issuer := &stubIssuer{}
	svc := verify.NewService(verify.Config{RetryBackoff: time.Millisecond}, store.NewMemorySessionStore(), issuer)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc), issuer
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRequestCode_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest},
		{name: "missing identity", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "invalid identity", body: `{"identity":"not an address"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.RequestCode, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestCode_ThenVerify(t *testing.T) {
	handler, issuer := newTestHandler(t)

	rec := postJSON(t, handler.RequestCode, `{"identity":"user@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-code status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp RequestCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Identity != "user@example.com" {
		t.Errorf("identity = %q, want user@example.com", resp.Identity)
	}
	if !resp.ExpiresAt.After(resp.ResendAvailableAt) {
		t.Error("expiry is not after the resend window")
	}

	code := issuer.code()
	if len(code) != verify.CodeLength {
		t.Fatalf("dispatched code %q has length %d", code, len(code))
	}

	rec = postJSON(t, handler.VerifyCode, `{"identity":"user@example.com","code":"`+code+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", rec.Code, rec.Body)
	}
	var verified VerifyCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &verified); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !verified.Verified {
		t.Error("Verified = false, want true")
	}

	// The code is consumed: a replay finds no active session.
	rec = postJSON(t, handler.VerifyCode, `{"identity":"user@example.com","code":"`+code+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("replay status = %d, want 404", rec.Code)
	}
}

func TestRequestCode_CooldownSetsRetryAfter(t *testing.T) {
	handler, _ := newTestHandler(t)

	if rec := postJSON(t, handler.RequestCode, `{"identity":"user@example.com"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec := postJSON(t, handler.RequestCode, `{"identity":"user@example.com"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestRequestCode_DispatchFailure(t *testing.T) {
	handler, issuer := newTestHandler(t)
	issuer.err = domain.ErrDispatchFailed

	rec := postJSON(t, handler.RequestCode, `{"identity":"user@example.com"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	// Nothing was committed, so a wrong guess has no session to hit.
	rec = postJSON(t, handler.VerifyCode, `{"identity":"user@example.com","code":"000000"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("verify status = %d, want 404", rec.Code)
	}
}

func TestVerifyCode_WrongCode(t *testing.T) {
	handler, issuer := newTestHandler(t)

	if rec := postJSON(t, handler.RequestCode, `{"identity":"user@example.com"}`); rec.Code != http.StatusOK {
		t.Fatalf("request-code failed")
	}
	wrong := "000000"
	if issuer.code() == wrong {
		wrong = "000001"
	}

	rec := postJSON(t, handler.VerifyCode, `{"identity":"user@example.com","code":"`+wrong+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
