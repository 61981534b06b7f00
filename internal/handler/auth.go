package handler

import (
	"context"
	"net/http"

	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/pkg/apierror"
	"fortnite-checker-api/pkg/response"
)

const maxAuthBody = 16 << 10

// DeviceFlow is the token broker surface used by the auth endpoints.
type DeviceFlow interface {
	BeginDeviceAuthorization(ctx context.Context) (model.DeviceAuthorization, error)
	PollDeviceAuthorization(ctx context.Context, deviceCode string) model.PollOutcome
	CreateDeviceSecret(ctx context.Context, cred model.Credential) (model.DeviceSecret, error)
}

// AuthHandler handles the device authorization flow.
type AuthHandler struct {
	flow DeviceFlow
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(flow DeviceFlow) *AuthHandler {
	return &AuthHandler{flow: flow}
}

// PollRequest is the body of POST /auth/poll.
type PollRequest struct {
	DeviceCode string `json:"device_code"`
}

// PollResponse is returned by POST /auth/poll. Only Pending is set while the
// user has not yet approved the code.
type PollResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Success     bool   `json:"success,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// CredentialRequest carries a session credential in the request body.
type CredentialRequest struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
}

func (c CredentialRequest) validate() error {
	var details []apierror.FieldError
	if c.AccessToken == "" {
		details = append(details, apierror.FieldError{Field: "access_token", Message: "is required"})
	}
	if c.AccountID == "" {
		details = append(details, apierror.FieldError{Field: "account_id", Message: "is required"})
	}
	if len(details) > 0 {
		return apierror.ValidationError("Access token and account ID are required", details...)
	}
	return nil
}

func (c CredentialRequest) credential() model.Credential {
	return model.Credential{AccessToken: c.AccessToken, AccountID: c.AccountID}
}

// DeviceCode handles GET /auth/device-code
func (h *AuthHandler) DeviceCode(w http.ResponseWriter, r *http.Request) {
	auth, err := h.flow.BeginDeviceAuthorization(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, auth)
}

// Poll handles POST /auth/poll
func (h *AuthHandler) Poll(w http.ResponseWriter, r *http.Request) {
	var req PollRequest
	if err := decodeJSON(w, r, &req, maxAuthBody); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DeviceCode == "" {
		writeError(w, r, apierror.BadRequest("Device code is required"))
		return
	}

	outcome := h.flow.PollDeviceAuthorization(r.Context(), req.DeviceCode)
	switch outcome.Status {
	case model.PollPending:
		response.OK(w, PollResponse{Pending: true})
	case model.PollAuthorized:
		response.OK(w, PollResponse{
			Success:     true,
			AccessToken: outcome.Credential.AccessToken,
			AccountID:   outcome.Credential.AccountID,
			DisplayName: outcome.Credential.DisplayName,
		})
	default:
		writeError(w, r, apierror.AuthFailed(outcome.Reason))
	}
}

// DeviceAuth handles POST /auth/device-auth
func (h *AuthHandler) DeviceAuth(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := decodeJSON(w, r, &req, maxAuthBody); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	secret, err := h.flow.CreateDeviceSecret(r.Context(), req.credential())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, secret)
}
