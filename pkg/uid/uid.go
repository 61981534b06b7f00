// Package uid generates request and report identifiers.
package uid

import (
	"context"

	"github.com/google/uuid"
)

// New returns a random identifier, used for request ids.
func New() string {
	return uuid.NewString()
}

// NewOrdered returns a time-ordered (v7) identifier so stored reports sort
// by creation. Falls back to a random id if the clock source fails.
func NewOrdered() string {
	id, err := uuid.NewV7()
	if err != nil {
		return New()
	}
	return id.String()
}

// IsValid reports whether id parses as a UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
