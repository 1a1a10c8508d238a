package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskflow/internal/app"
)

// ErrUnauthorized is returned for any 401 response. Callers treat it
// uniformly as "session invalid".
var ErrUnauthorized = errors.New("unauthorized")

// APIError carries a non-2xx status with the server's message when the
// body was parseable.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// Client talks to the TaskFlow backend. Token is consulted per request so
// a session change is picked up without rebuilding the client.
type Client struct {
	BaseURL string
	Token   func() string
	HTTP    *http.Client
	Logger  *app.Logger
}

func NewClient(baseURL string, token func() string, logger *app.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{},
		Logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if c.Token != nil {
		if token := c.Token(); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(request)
	if err != nil {
		return fmt.Errorf("network error: unable to reach %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.Logger != nil {
		c.Logger.Debug("api response", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var errResp struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		_ = json.Unmarshal(bodyBytes, &errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Detail
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("invalid api response format: %w", err)
	}
	return nil
}
