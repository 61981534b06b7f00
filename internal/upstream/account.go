package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Profile namespaces queried by the aggregator.
const (
	ProfileCommonCore = "common_core"
	ProfileAthena     = "athena"
)

// Grant types accepted by the token endpoint.
const (
	GrantClientCredentials = "client_credentials"
	GrantDeviceAuth        = "device_auth"
	GrantDeviceCode        = "device_code"
	GrantExchangeCode      = "exchange_code"
)

// TokenResponse is a successful grant.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"displayName"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DeviceAuthorizationResponse starts a device-code login.
type DeviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
}

// ExchangeResponse carries a one-shot exchange code.
type ExchangeResponse struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

// DeviceAuthResponse is a newly provisioned device secret.
type DeviceAuthResponse struct {
	DeviceID  string `json:"deviceId"`
	AccountID string `json:"accountId"`
	Secret    string `json:"secret"`
	Created   struct {
		DateTime string `json:"dateTime"`
	} `json:"created"`
}

// Account is the public account identity record.
type Account struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	DisplayName           string `json:"displayName"`
	Name                  string `json:"name"`
	Country               string `json:"country"`
	Created               Time   `json:"created"`
	LastLogin             Time   `json:"lastLogin"`
	LastDisplayNameChange Time   `json:"lastDisplayNameChange"`
	TFAEnabled            bool   `json:"tfaEnabled"`
	EmailVerified         bool   `json:"emailVerified"`
	MinorVerified         bool   `json:"minorVerified"`
	MinorExpected         bool   `json:"minorExpected"`
	CanUpdateDisplayName  bool   `json:"canUpdateDisplayName"`
}

// AccountClient calls the account and profile services.
type AccountClient struct {
	client
	accountBaseURL string
	profileBaseURL string
}

// NewAccountClient creates an account/profile service client.
func NewAccountClient(accountBaseURL, profileBaseURL string, timeout time.Duration, log *slog.Logger) *AccountClient {
	return &AccountClient{
		client:         newClient(timeout, log),
		accountBaseURL: trimBase(accountBaseURL),
		profileBaseURL: trimBase(profileBaseURL),
	}
}

// Grant posts a form-encoded grant authenticated with a basic client secret.
func (c *AccountClient) Grant(ctx context.Context, basicSecret string, form url.Values) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, request{
		method:        http.MethodPost,
		url:           c.accountBaseURL + "/account/api/oauth/token",
		authorization: basicAuth(basicSecret),
		contentType:   "application/x-www-form-urlencoded",
		body:          []byte(form.Encode()),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s grant: %w", form.Get("grant_type"), err)
	}
	return &resp, nil
}

// DeviceAuthorization starts a device-code login using an application token.
func (c *AccountClient) DeviceAuthorization(ctx context.Context, appToken string) (*DeviceAuthorizationResponse, error) {
	var resp DeviceAuthorizationResponse
	err := c.do(ctx, request{
		method:        http.MethodPost,
		url:           c.accountBaseURL + "/account/api/oauth/deviceAuthorization",
		authorization: bearerAuth(appToken),
		contentType:   "application/x-www-form-urlencoded",
		body:          []byte{},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("device authorization: %w", err)
	}
	return &resp, nil
}

// Exchange obtains an exchange code for the session behind accessToken.
func (c *AccountClient) Exchange(ctx context.Context, accessToken string) (*ExchangeResponse, error) {
	var resp ExchangeResponse
	err := c.do(ctx, request{
		method:        http.MethodGet,
		url:           c.accountBaseURL + "/account/api/oauth/exchange",
		authorization: bearerAuth(accessToken),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	return &resp, nil
}

// CreateDeviceAuth provisions a device secret for accountID.
func (c *AccountClient) CreateDeviceAuth(ctx context.Context, accessToken, accountID string) (*DeviceAuthResponse, error) {
	req, err := jsonRequest(http.MethodPost,
		fmt.Sprintf("%s/account/api/public/account/%s/deviceAuth", c.accountBaseURL, url.PathEscape(accountID)),
		bearerAuth(accessToken), struct{}{})
	if err != nil {
		return nil, err
	}

	var resp DeviceAuthResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("create device auth: %w", err)
	}
	return &resp, nil
}

// GetAccount fetches the account identity record.
func (c *AccountClient) GetAccount(ctx context.Context, accessToken, accountID string) (*Account, error) {
	var resp Account
	err := c.do(ctx, request{
		method:        http.MethodGet,
		url:           fmt.Sprintf("%s/account/api/public/account/%s", c.accountBaseURL, url.PathEscape(accountID)),
		authorization: bearerAuth(accessToken),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &resp, nil
}

// GetExternalAuths fetches linked platform identities verbatim.
func (c *AccountClient) GetExternalAuths(ctx context.Context, accessToken, accountID string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(ctx, request{
		method:        http.MethodGet,
		url:           fmt.Sprintf("%s/account/api/public/account/%s/externalAuths", c.accountBaseURL, url.PathEscape(accountID)),
		authorization: bearerAuth(accessToken),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get external auths: %w", err)
	}
	if len(resp) == 0 {
		resp = json.RawMessage("[]")
	}
	return resp, nil
}

// QueryProfile queries one profile namespace.
func (c *AccountClient) QueryProfile(ctx context.Context, accessToken, accountID, profileID string) (*Profile, error) {
	q := url.Values{}
	q.Set("profileId", profileID)
	q.Set("rvn", "-1")

	req, err := jsonRequest(http.MethodPost,
		fmt.Sprintf("%s/fortnite/api/game/v2/profile/%s/client/QueryProfile?%s",
			c.profileBaseURL, url.PathEscape(accountID), q.Encode()),
		bearerAuth(accessToken), struct{}{})
	if err != nil {
		return nil, err
	}

	var resp ProfileResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("query profile %s: %w", profileID, err)
	}
	return resp.Profile(), nil
}
