package model

import (
	"encoding/json"
	"fmt"
)

// UpstreamAuthError reports a rejected application grant or a transport failure
// while issuing an application token. It is fatal to the call that raised it.
type UpstreamAuthError struct {
	Message    string
	StatusCode int // 0 when the request never got a response
	Payload    json.RawMessage
	Err        error
}

func (e *UpstreamAuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream auth error (%d): %s", e.StatusCode, e.Message)
	}
	return "upstream auth error: " + e.Message
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// AuthError reports a recoverable failure of a device secret exchange,
// device secret provisioning or device-code poll.
type AuthError struct {
	Message    string
	Code       string // upstream errorCode, if any
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// AggregationError reports that a required identity or profile fetch failed
// and no AccountDocument could be built.
type AggregationError struct {
	Stage      string // "account", "external_auths", "common_core", "athena", "enrichment"
	Message    string
	StatusCode int
	Payload    json.RawMessage
	Err        error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed at %s: %s", e.Stage, e.Message)
}

func (e *AggregationError) Unwrap() error { return e.Err }
