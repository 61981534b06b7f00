package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

// TokenAPI is the part of the account service the broker needs.
type TokenAPI interface {
	Grant(ctx context.Context, basicSecret string, form url.Values) (*upstream.TokenResponse, error)
	DeviceAuthorization(ctx context.Context, appToken string) (*upstream.DeviceAuthorizationResponse, error)
	Exchange(ctx context.Context, accessToken string) (*upstream.ExchangeResponse, error)
	CreateDeviceAuth(ctx context.Context, accessToken, accountID string) (*upstream.DeviceAuthResponse, error)
}

var _ TokenAPI = (*upstream.AccountClient)(nil)

const (
	msgClientTokenFailed = "Failed to get client token"
	msgDeviceAuthFailed  = "Failed to create device auth"
	msgAuthFailed        = "Authentication Failed"
	msgPollFailed        = "Authentication failed"
	msgDeviceCodeFailed  = "Failed to get device code"
	errCodePending       = "authorization_pending"
	errCodeSlowDown      = "slow_down"
)

// Broker obtains and exchanges bearer credentials for the account service.
// ApplicationSecret signs client_credentials and device_code grants;
// DeviceSecret signs device_auth and exchange_code grants.
type Broker struct {
	api     TokenAPI
	secrets config.UpstreamConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewBroker creates a token broker.
func NewBroker(api TokenAPI, secrets config.UpstreamConfig, log *slog.Logger) *Broker {
	return &Broker{
		api:     api,
		secrets: secrets,
		logger:  logger.Component(log, "broker"),
		now:     time.Now,
	}
}

// ApplicationToken performs a client_credentials grant.
func (b *Broker) ApplicationToken(ctx context.Context) (model.Credential, error) {
	resp, err := b.api.Grant(ctx, b.secrets.ApplicationSecret, url.Values{
		"grant_type": {upstream.GrantClientCredentials},
	})
	if err != nil {
		b.logger.Error("application token grant failed", slog.Any("error", err))
		return model.Credential{}, newUpstreamAuthError(err, msgClientTokenFailed)
	}
	return b.credential(resp), nil
}

// AuthenticateWithDeviceSecret exchanges a device secret for a session credential.
// Every failure is an *model.AuthError.
func (b *Broker) AuthenticateWithDeviceSecret(ctx context.Context, ds model.DeviceSecret) (model.Credential, error) {
	if err := ds.Validate(); err != nil {
		return model.Credential{}, &model.AuthError{Message: err.Error(), StatusCode: http.StatusBadRequest, Err: err}
	}

	resp, err := b.api.Grant(ctx, b.secrets.DeviceSecret, url.Values{
		"grant_type": {upstream.GrantDeviceAuth},
		"device_id":  {ds.DeviceID},
		"account_id": {ds.AccountID},
		"secret":     {ds.Secret},
	})
	if err != nil {
		b.logger.Warn("device auth grant failed",
			slog.String("device_secret", ds.String()),
			slog.Any("error", err),
		)
		return model.Credential{}, newAuthError(err, msgAuthFailed)
	}
	return b.credential(resp), nil
}

// CreateDeviceSecret provisions a persistent device secret for cred's account.
func (b *Broker) CreateDeviceSecret(ctx context.Context, cred model.Credential) (model.DeviceSecret, error) {
	resp, err := b.api.CreateDeviceAuth(ctx, cred.AccessToken, cred.AccountID)
	if err != nil {
		b.logger.Warn("device auth creation failed",
			slog.String("account_id", cred.AccountID),
			slog.Any("error", err),
		)
		return model.DeviceSecret{}, newAuthError(err, msgDeviceAuthFailed)
	}

	accountID := resp.AccountID
	if accountID == "" {
		accountID = cred.AccountID
	}
	ds := model.DeviceSecret{
		DeviceID:  resp.DeviceID,
		AccountID: accountID,
		Secret:    resp.Secret,
		Label:     cred.DisplayName,
	}
	b.logger.Info("device secret created", slog.String("device_secret", ds.String()))
	return ds, nil
}

// BeginDeviceAuthorization starts a device-code login.
func (b *Broker) BeginDeviceAuthorization(ctx context.Context) (model.DeviceAuthorization, error) {
	app, err := b.ApplicationToken(ctx)
	if err != nil {
		return model.DeviceAuthorization{}, err
	}

	resp, err := b.api.DeviceAuthorization(ctx, app.AccessToken)
	if err != nil {
		b.logger.Error("device authorization failed", slog.Any("error", err))
		return model.DeviceAuthorization{}, newUpstreamAuthError(err, msgDeviceCodeFailed)
	}

	return model.DeviceAuthorization{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		ExpiresIn:               resp.ExpiresIn,
	}, nil
}

// PollDeviceAuthorization makes one attempt to complete a device-code login.
func (b *Broker) PollDeviceAuthorization(ctx context.Context, deviceCode string) model.PollOutcome {
	if deviceCode == "" {
		return model.Failed("Device code is required")
	}

	grant, err := b.api.Grant(ctx, b.secrets.ApplicationSecret, url.Values{
		"grant_type":  {upstream.GrantDeviceCode},
		"device_code": {deviceCode},
	})
	if err != nil {
		if isPending(err) {
			return model.Pending()
		}
		b.logger.Warn("device code grant failed", slog.Any("error", err))
		return model.Failed(msgPollFailed)
	}

	exchange, err := b.api.Exchange(ctx, grant.AccessToken)
	if err != nil {
		b.logger.Warn("exchange failed", slog.Any("error", err))
		return model.Failed(msgPollFailed)
	}

	final, err := b.api.Grant(ctx, b.secrets.DeviceSecret, url.Values{
		"grant_type":    {upstream.GrantExchangeCode},
		"exchange_code": {exchange.Code},
	})
	if err != nil {
		b.logger.Warn("exchange code grant failed", slog.Any("error", err))
		return model.Failed(msgPollFailed)
	}

	cred := b.credential(final)
	b.logger.Info("device authorization completed", slog.String("account_id", cred.AccountID))
	return model.Authorized(cred)
}

func (b *Broker) credential(resp *upstream.TokenResponse) model.Credential {
	expires := resp.ExpiresAt
	if expires.IsZero() && resp.ExpiresIn > 0 {
		expires = b.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return model.Credential{
		AccountID:   resp.AccountID,
		AccessToken: resp.AccessToken,
		DisplayName: resp.DisplayName,
		ExpiresAt:   expires,
	}
}

// isPending reports whether a device_code grant failure means the user has not approved yet.
func isPending(err error) bool {
	apiErr, ok := upstream.AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.StatusCode == http.StatusBadRequest {
		return true
	}
	if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return strings.Contains(apiErr.ErrorCode, errCodePending) || strings.Contains(apiErr.ErrorCode, errCodeSlowDown)
	}
	return false
}

func newUpstreamAuthError(err error, fallback string) *model.UpstreamAuthError {
	e := &model.UpstreamAuthError{Message: fallback, Err: err}
	if apiErr, ok := upstream.AsAPIError(err); ok {
		e.StatusCode = apiErr.StatusCode
		e.Payload = apiErr.Payload()
		if apiErr.ErrorMessage != "" {
			e.Message = apiErr.ErrorMessage
		}
	}
	return e
}

func newAuthError(err error, fallback string) *model.AuthError {
	e := &model.AuthError{Message: fallback, Err: err}
	if apiErr, ok := upstream.AsAPIError(err); ok {
		e.StatusCode = apiErr.StatusCode
		e.Code = apiErr.ErrorCode
		if apiErr.ErrorMessage != "" {
			e.Message = apiErr.ErrorMessage
		}
	}
	return e
}
