package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SMSService sends verification codes through an HTTP SMS gateway.
type SMSService struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewSMSService creates an SMS gateway client. The caller bounds each send
// with a context deadline; the client itself carries no timeout.
func NewSMSService(baseURL, apiKey, sender string, httpClient *http.Client) *SMSService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SMSService{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		sender:     sender,
		httpClient: httpClient,
	}
}

type sendSMSRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// SendVerificationCode delivers a code to a phone number.
func (s *SMSService) SendVerificationCode(ctx context.Context, to, code string) error {
	payload := sendSMSRequest{
		To:   to,
		From: s.sender,
		Text: fmt.Sprintf("%s is your verification code. It expires in 10 minutes.", code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
