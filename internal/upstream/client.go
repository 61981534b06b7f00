// Package upstream talks to the game account, profile and cosmetic catalog services.
package upstream

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
	"time"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 8 << 10

// APIError is a non-2xx response from an upstream service.
type APIError struct {
	StatusCode   int
	ErrorCode    string
	ErrorMessage string
	Body         []byte
}

func (e *APIError) Error() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("upstream error (%d): %s", e.StatusCode, e.ErrorMessage)
	}
	return fmt.Sprintf("upstream request failed with status %d", e.StatusCode)
}

// Payload returns the raw error body when it is valid JSON.
func (e *APIError) Payload() json.RawMessage {
	if len(e.Body) > 0 && json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return nil
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// errorBody is the error envelope returned by the account and profile services.
type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Message      string `json:"message"`
	Error        string `json:"error"`
}

// client is the shared transport for all upstream calls.
type client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func newClient(timeout time.Duration, log *slog.Logger) client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// request describes one upstream call.
type request struct {
	method        string
	url           string
	authorization string
	contentType   string
	body          []byte
}

func jsonRequest(method, url, authorization string, body any) (request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return request{
		method:        method,
		url:           url,
		authorization: authorization,
		contentType:   "application/json",
		body:          data,
	}, nil
}

// do executes req and decodes a 2xx body into result (when non-nil).
// Non-2xx responses are returned as *APIError.
func (c *client) do(ctx context.Context, req request, result any) error {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if req.authorization != "" {
		httpReq.Header.Set("Authorization", req.authorization)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("close response body failed", slog.Any("error", err))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	apiErr := &APIError{StatusCode: status, Body: body}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.ErrorCode = eb.ErrorCode
		switch {
		case eb.ErrorMessage != "":
			apiErr.ErrorMessage = eb.ErrorMessage
		case eb.Message != "":
			apiErr.ErrorMessage = eb.Message
		case eb.Error != "":
			apiErr.ErrorMessage = eb.Error
		}
	}
	return apiErr
}

func basicAuth(secret string) string { return "Basic " + secret }

func bearerAuth(token string) string { return "Bearer " + token }

func trimBase(u string) string { return strings.TrimRight(u, "/") }
