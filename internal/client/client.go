// Package client opens streaming summarization calls against the remote
// endpoint. It returns the raw response; decoding is left to package stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"smart-summary/internal/domain"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Transport opens one streaming summarization call.
type Transport interface {
	Open(ctx context.Context, req domain.Request) (*http.Response, error)
}

// HTTPClient posts requests to a fixed endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

// New builds a client for endpoint. A nil httpClient uses a client without a
// timeout; callers that want one configure it on their own *http.Client.
func New(endpoint string, httpClient *http.Client, log *slog.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPClient{endpoint: endpoint, http: httpClient, log: log}, nil
}

// Open sends req and returns the response once headers arrive. Non-success
// statuses are returned as *domain.ServerError with the body closed; transport
// failures as *domain.NetworkError.
func (c *HTTPClient) Open(ctx context.Context, req domain.Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &domain.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg := errorMessage(resp)
		c.log.Warn("summarization request rejected",
			"status", resp.StatusCode,
			"endpoint", c.endpoint,
			"reason", msg)
		return nil, &domain.ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	return resp, nil
}

// errorMessage pulls a human readable reason out of an error response. JSON
// bodies of the form {"detail": ...}, {"error": ...} or {"message": ...} are
// understood; anything else falls back to the raw text or the status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(raw))

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if detail := detailText(payload.Detail); detail != "" {
			return detail
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	if text != "" && !strings.HasPrefix(text, "{") && len(text) < 512 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// detailText handles both a plain string detail and a list of validation
// entries with a "msg" field.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
