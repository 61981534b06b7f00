package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

var testSecrets = config.UpstreamConfig{ApplicationSecret: "APP", DeviceSecret: "DEV"}

func newTestBroker(api *fakeTokenAPI) *Broker {
	b := NewBroker(api, testSecrets, logger.Discard())
	b.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return b
}

func apiError(status int, code, msg string) error {
	return fmt.Errorf("grant: %w", &upstream.APIError{
		StatusCode:   status,
		ErrorCode:    code,
		ErrorMessage: msg,
		Body:         []byte(fmt.Sprintf(`{"errorCode":%q,"errorMessage":%q}`, code, msg)),
	})
}

func TestBroker_ApplicationToken(t *testing.T) {
	api := &fakeTokenAPI{grant: func(secret string, form url.Values) (*upstream.TokenResponse, error) {
		return &upstream.TokenResponse{AccessToken: "app-token", ExpiresIn: 3600}, nil
	}}
	b := newTestBroker(api)

	cred, err := b.ApplicationToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-token", cred.AccessToken)
	assert.Equal(t, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), cred.ExpiresAt)

	require.Len(t, api.grants, 1)
	assert.Equal(t, "APP", api.grants[0].secret)
	assert.Equal(t, upstream.GrantClientCredentials, api.grants[0].form.Get("grant_type"))
}

func TestBroker_ApplicationTokenErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMsg    string
		wantStatus int
	}{
		{"upstream message", apiError(400, "errors.com.epicgames.common.oauth.invalid_client", "Sorry the client credentials you are using are invalid"), "Sorry the client credentials you are using are invalid", 400},
		{"transport failure", errors.New("request failed: dial tcp: i/o timeout"), "Failed to get client token", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeTokenAPI{grant: func(string, url.Values) (*upstream.TokenResponse, error) { return nil, tt.err }}

			_, err := newTestBroker(api).ApplicationToken(context.Background())

			var upErr *model.UpstreamAuthError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.wantMsg, upErr.Message)
			assert.Equal(t, tt.wantStatus, upErr.StatusCode)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBroker_AuthenticateWithDeviceSecret(t *testing.T) {
	api := &fakeTokenAPI{grant: func(secret string, form url.Values) (*upstream.TokenResponse, error) {
		return &upstream.TokenResponse{AccessToken: "user-token", AccountID: "acc", DisplayName: "Alice"}, nil
	}}
	b := newTestBroker(api)

	cred, err := b.AuthenticateWithDeviceSecret(context.Background(), model.DeviceSecret{DeviceID: "dev", AccountID: "acc", Secret: "sec"})
	require.NoError(t, err)
	assert.Equal(t, model.Credential{AccountID: "acc", AccessToken: "user-token", DisplayName: "Alice"}, cred)

	require.Len(t, api.grants, 1)
	call := api.grants[0]
	assert.Equal(t, "DEV", call.secret)
	assert.Equal(t, upstream.GrantDeviceAuth, call.form.Get("grant_type"))
	assert.Equal(t, "dev", call.form.Get("device_id"))
	assert.Equal(t, "acc", call.form.Get("account_id"))
	assert.Equal(t, "sec", call.form.Get("secret"))
}

func TestBroker_AuthenticateWithDeviceSecretErrors(t *testing.T) {
	t.Run("upstream message", func(t *testing.T) {
		api := &fakeTokenAPI{grant: func(string, url.Values) (*upstream.TokenResponse, error) {
			return nil, apiError(400, "errors.com.epicgames.account.invalid_account_credentials", "Sorry the account credentials you are using are invalid")
		}}
		_, err := newTestBroker(api).AuthenticateWithDeviceSecret(context.Background(), model.DeviceSecret{DeviceID: "d", AccountID: "a", Secret: "s"})

		var authErr *model.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Sorry the account credentials you are using are invalid", authErr.Message)
		assert.Equal(t, "errors.com.epicgames.account.invalid_account_credentials", authErr.Code)
	})

	t.Run("transport failure", func(t *testing.T) {
		api := &fakeTokenAPI{grant: func(string, url.Values) (*upstream.TokenResponse, error) {
			return nil, context.DeadlineExceeded
		}}
		_, err := newTestBroker(api).AuthenticateWithDeviceSecret(context.Background(), model.DeviceSecret{DeviceID: "d", AccountID: "a", Secret: "s"})

		var authErr *model.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Authentication Failed", authErr.Message)
	})

	t.Run("incomplete secret", func(t *testing.T) {
		api := &fakeTokenAPI{}
		_, err := newTestBroker(api).AuthenticateWithDeviceSecret(context.Background(), model.DeviceSecret{AccountID: "a"})

		var authErr *model.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
		assert.Empty(t, api.grants)
	})
}

func TestBroker_CreateDeviceSecret(t *testing.T) {
	api := &fakeTokenAPI{createDevice: func(token, accountID string) (*upstream.DeviceAuthResponse, error) {
		assert.Equal(t, "user-token", token)
		return &upstream.DeviceAuthResponse{DeviceID: "dev", AccountID: accountID, Secret: "sec"}, nil
	}}

	ds, err := newTestBroker(api).CreateDeviceSecret(context.Background(), model.Credential{AccountID: "acc", AccessToken: "user-token", DisplayName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, model.DeviceSecret{DeviceID: "dev", AccountID: "acc", Secret: "sec", Label: "Alice"}, ds)
}

func TestBroker_CreateDeviceSecretFailure(t *testing.T) {
	api := &fakeTokenAPI{createDevice: func(string, string) (*upstream.DeviceAuthResponse, error) {
		return nil, errors.New("request failed: connection reset")
	}}

	_, err := newTestBroker(api).CreateDeviceSecret(context.Background(), model.Credential{AccountID: "acc"})

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Failed to create device auth", authErr.Message)
}

func TestBroker_BeginDeviceAuthorization(t *testing.T) {
	api := &fakeTokenAPI{
		grant: func(string, url.Values) (*upstream.TokenResponse, error) {
			return &upstream.TokenResponse{AccessToken: "app-token"}, nil
		},
		deviceAuthz: func(appToken string) (*upstream.DeviceAuthorizationResponse, error) {
			assert.Equal(t, "app-token", appToken)
			return &upstream.DeviceAuthorizationResponse{
				DeviceCode: "dc", UserCode: "UC", VerificationURI: "https://v", VerificationURIComplete: "https://v?c=UC", ExpiresIn: 600,
			}, nil
		},
	}

	auth, err := newTestBroker(api).BeginDeviceAuthorization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DeviceAuthorization{
		DeviceCode: "dc", UserCode: "UC", VerificationURI: "https://v", VerificationURIComplete: "https://v?c=UC", ExpiresIn: 600,
	}, auth)
}

func TestBroker_BeginDeviceAuthorizationFailure(t *testing.T) {
	api := &fakeTokenAPI{
		grant: func(string, url.Values) (*upstream.TokenResponse, error) {
			return &upstream.TokenResponse{AccessToken: "app-token"}, nil
		},
		deviceAuthz: func(string) (*upstream.DeviceAuthorizationResponse, error) {
			return nil, apiError(403, "errors.com.epicgames.common.missing_permission", "")
		},
	}

	_, err := newTestBroker(api).BeginDeviceAuthorization(context.Background())

	var upErr *model.UpstreamAuthError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusForbidden, upErr.StatusCode)
	assert.Equal(t, "Failed to get device code", upErr.Message)
	assert.NotEmpty(t, upErr.Payload)
}

func TestBroker_PollDeviceAuthorization_Authorized(t *testing.T) {
	api := &fakeTokenAPI{
		grant: func(secret string, form url.Values) (*upstream.TokenResponse, error) {
			switch form.Get("grant_type") {
			case upstream.GrantDeviceCode:
				assert.Equal(t, "dc", form.Get("device_code"))
				return &upstream.TokenResponse{AccessToken: "switch-token"}, nil
			case upstream.GrantExchangeCode:
				assert.Equal(t, "xc", form.Get("exchange_code"))
				return &upstream.TokenResponse{AccessToken: "ios-token", AccountID: "acc", DisplayName: "Alice"}, nil
			}
			return nil, errors.New("unexpected grant")
		},
		exchange: func(string) (*upstream.ExchangeResponse, error) {
			return &upstream.ExchangeResponse{Code: "xc"}, nil
		},
	}

	outcome := newTestBroker(api).PollDeviceAuthorization(context.Background(), "dc")

	require.Equal(t, model.PollAuthorized, outcome.Status)
	assert.Equal(t, "ios-token", outcome.Credential.AccessToken)
	assert.Equal(t, "acc", outcome.Credential.AccountID)
	assert.Equal(t, "Alice", outcome.Credential.DisplayName)

	require.Len(t, api.grants, 2)
	assert.Equal(t, "APP", api.grants[0].secret)
	assert.Equal(t, "DEV", api.grants[1].secret)
	assert.Equal(t, []string{"switch-token"}, api.exchangeTokens)
}

func TestBroker_PollDeviceAuthorization_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.PollStatus
	}{
		{"bad request is pending", apiError(400, "errors.com.epicgames.account.oauth.authorization_pending", ""), model.PollPending},
		{"bad request without code is pending", apiError(400, "", ""), model.PollPending},
		{"slow down is pending", apiError(429, "errors.com.epicgames.account.oauth.slow_down", ""), model.PollPending},
		{"unauthorized pending code is pending", apiError(401, "errors.com.epicgames.account.oauth.authorization_pending", ""), model.PollPending},
		{"expired code fails", apiError(404, "errors.com.epicgames.account.oauth.device_code_not_found", ""), model.PollFailed},
		{"server error fails", apiError(500, "", ""), model.PollFailed},
		{"transport failure fails", errors.New("request failed: EOF"), model.PollFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeTokenAPI{grant: func(string, url.Values) (*upstream.TokenResponse, error) { return nil, tt.err }}

			outcome := newTestBroker(api).PollDeviceAuthorization(context.Background(), "dc")

			assert.Equal(t, tt.want, outcome.Status)
			if tt.want == model.PollFailed {
				assert.Equal(t, "Authentication failed", outcome.Reason)
			}
		})
	}
}

func TestBroker_PollDeviceAuthorization_ExchangeFailure(t *testing.T) {
	api := &fakeTokenAPI{
		grant: func(string, url.Values) (*upstream.TokenResponse, error) {
			return &upstream.TokenResponse{AccessToken: "switch-token"}, nil
		},
		exchange: func(string) (*upstream.ExchangeResponse, error) {
			return nil, apiError(400, "errors.com.epicgames.common.oauth.invalid_token", "")
		},
	}

	outcome := newTestBroker(api).PollDeviceAuthorization(context.Background(), "dc")

	assert.Equal(t, model.PollFailed, outcome.Status)
	assert.Len(t, api.grants, 1)
}

func TestBroker_PollDeviceAuthorization_EmptyCode(t *testing.T) {
	api := &fakeTokenAPI{}

	outcome := newTestBroker(api).PollDeviceAuthorization(context.Background(), "")

	assert.Equal(t, model.PollFailed, outcome.Status)
	assert.Empty(t, api.grants)
}
