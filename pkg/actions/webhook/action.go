// Package webhook implements the webhook_call action: an HTTP request to an
// external endpoint with the rendered parameter bag.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talentflow/automation/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrWebhookURLMissing is returned when the url parameter is absent.
	ErrWebhookURLMissing = errors.New("missing or invalid 'url' parameter")
	// ErrWebhookServerError is returned for 5xx responses.
	ErrWebhookServerError = errors.New("webhook endpoint returned a server error")
	// ErrWebhookClientError is returned for 4xx responses.
	ErrWebhookClientError = errors.New("webhook endpoint rejected the request")
)

// Action performs a single HTTP call. Failures are classified for the
// executor: network errors and 5xx are retryable, 4xx is permanent.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration

	client *http.Client
}

func NewAction(params map[string]any) (*Action, error) {
	url, ok := params["url"].(string)
	if !ok || url == "" {
		return nil, ErrWebhookURLMissing
	}

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)

	if raw, exists := params["headers"]; exists {
		if headersMap, ok := raw.(map[string]any); ok {
			for k, v := range headersMap {
				if str, ok := v.(string); ok {
					headers[k] = str
				}
			}
		}
	}

	var body string

	switch raw := params["body"].(type) {
	case string:
		body = raw
	case map[string]any, []any:
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}

		body = string(data)
	}

	timeout := defaultTimeout
	if seconds, ok := params["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (a *Action) Execute(ctx context.Context, _ map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "webhook_call", "url", a.URL, "method", a.Method)
	logger.InfoContext(ctx, "Calling webhook")

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, strings.NewReader(a.Body))
	if err != nil {
		return nil, protocol.NewPermanentError("webhook_call", err)
	}

	if a.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, protocol.NewRetryableError("webhook_call", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, protocol.NewRetryableError("webhook_call", err)
	}

	var body any

	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
	}

	switch {
	case resp.StatusCode >= 500:
		return result, protocol.NewRetryableError("webhook_call",
			fmt.Errorf("%w: status %d", ErrWebhookServerError, resp.StatusCode))
	case resp.StatusCode >= 400:
		return result, protocol.NewPermanentError("webhook_call",
			fmt.Errorf("%w: status %d", ErrWebhookClientError, resp.StatusCode))
	}

	logger.InfoContext(ctx, "Webhook call completed", "status_code", resp.StatusCode)

	return result, nil
}
