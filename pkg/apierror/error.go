package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    []FieldError    `json:"details,omitempty"`
	Upstream   json.RawMessage `json:"upstream,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	if len(e.Details) > 0 {
		response["error"].(map[string]interface{})["details"] = e.Details
	}
	if len(e.Upstream) > 0 && json.Valid(e.Upstream) {
		response["error"].(map[string]interface{})["upstream"] = e.Upstream
	}
	if e.RequestID != "" {
		response["error"].(map[string]interface{})["request_id"] = e.RequestID
	}

	data, _ := json.Marshal(response)
	return data
}

// WithUpstream attaches the raw upstream error payload.
func (e *Error) WithUpstream(payload json.RawMessage) *Error {
	e.Upstream = payload
	return e
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return &Error{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    message,
	}
}

// UpstreamAuth creates a 502 error for a rejected application grant.
func UpstreamAuth(message string) *Error {
	if message == "" {
		message = "Upstream authentication failed"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "UPSTREAM_AUTH_ERROR",
		Message:    message,
	}
}

// AuthFailed creates a 401 error for a failed account authentication.
func AuthFailed(message string) *Error {
	if message == "" {
		message = "Authentication failed"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "AUTH_FAILED",
		Message:    message,
	}
}

// Aggregation creates a 502 error for a failed account data fetch.
func Aggregation(message string) *Error {
	if message == "" {
		message = "Failed to fetch account data"
	}
	return &Error{
		StatusCode: http.StatusBadGateway,
		Code:       "AGGREGATION_FAILED",
		Message:    message,
	}
}
