package model

import (
	"fmt"
	"strings"
	"time"
)

// Credential is a session bearer token issued by the upstream account service.
// It is owned by the caller and never persisted by the service.
type Credential struct {
	AccountID   string    `json:"account_id"`
	AccessToken string    `json:"access_token"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the credential is past its expiry at now.
// A zero ExpiresAt never expires.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// DeviceSecret is a long-lived (deviceId, accountId, secret) triple that can be
// exchanged for a Credential without an interactive login.
type DeviceSecret struct {
	DeviceID  string `json:"deviceId"`
	AccountID string `json:"accountId"`
	Secret    string `json:"secret"`
	Label     string `json:"label,omitempty"`
}

// DisplayLabel returns the label, or the account id when no label was given.
func (d DeviceSecret) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.AccountID
}

// Validate checks that all three identifying fields are present.
func (d DeviceSecret) Validate() error {
	var missing []string
	if d.DeviceID == "" {
		missing = append(missing, "deviceId")
	}
	if d.AccountID == "" {
		missing = append(missing, "accountId")
	}
	if d.Secret == "" {
		missing = append(missing, "secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("device secret is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// String never prints the secret in full.
func (d DeviceSecret) String() string {
	return fmt.Sprintf("DeviceSecret{label=%q account=%s device=%s secret=%s}",
		d.DisplayLabel(), d.AccountID, MaskSecret(d.DeviceID), MaskSecret(d.Secret))
}

// MaskSecret keeps the first and last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// DeviceAuthorization is the user-facing half of the device authorization flow.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
}

// PollStatus is the outcome kind of a single device-code poll.
type PollStatus string

const (
	PollAuthorized PollStatus = "authorized"
	PollPending    PollStatus = "pending"
	PollFailed     PollStatus = "failed"
)

// PollOutcome is the tagged result of one device-code poll attempt.
type PollOutcome struct {
	Status     PollStatus
	Credential Credential // set when Status == PollAuthorized
	Reason     string     // set when Status == PollFailed
}

// Authorized builds an authorized outcome.
func Authorized(c Credential) PollOutcome {
	return PollOutcome{Status: PollAuthorized, Credential: c}
}

// Pending builds a pending outcome.
func Pending() PollOutcome {
	return PollOutcome{Status: PollPending}
}

// Failed builds a failed outcome.
func Failed(reason string) PollOutcome {
	return PollOutcome{Status: PollFailed, Reason: reason}
}
