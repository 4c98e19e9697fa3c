package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hrygo/leanmind/plugin/ai/timeout"
)

// AddMessageResponse is the body returned by the add endpoint of the session sub-interface.
type AddMessageResponse struct {
	Status string `json:"status"`
}

// StatusOK is the status reported by a successful add.
const StatusOK = "ok"

// remoteService talks to a session sub-interface served by another leanmind process.
// The sub-interface exposes GET {base}/{sessionId}/history and POST {base}/{sessionId}/add.
type remoteService struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteSessionService creates a SessionService backed by a remote session sub-interface.
// baseURL is the sessions root, e.g. http://store:8081/internal/sessions.
func NewRemoteSessionService(baseURL string, httpClient *http.Client) SessionService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout.SessionClientTimeout}
	}
	return &remoteService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (s *remoteService) endpoint(sessionID, op string) string {
	return s.baseURL + "/" + url.PathEscape(sessionID) + "/" + op
}

func (s *remoteService) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(sessionID, "history"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	messages := []Message{}
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return messages, nil
}

func (s *remoteService) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if err := validateAppend(sessionID, msg); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(sessionID, "add"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build add request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	var out AddMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode add response: %w", err)
	}
	if out.Status != StatusOK {
		return fmt.Errorf("failed to append message: unexpected status %q", out.Status)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("session store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

var _ SessionService = (*remoteService)(nil)
