package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
)

// scriptedPoller returns Pending until attempt authorizeAt (1-based), then its final outcome.
type scriptedPoller struct {
	mu          sync.Mutex
	attempts    int
	authorizeAt int
	final       model.PollOutcome
}

func (p *scriptedPoller) PollDeviceAuthorization(context.Context, string) model.PollOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.authorizeAt > 0 && p.attempts == p.authorizeAt {
		return p.final
	}
	return model.Pending()
}

var defaultPollConfig = config.PollConfig{MaxAttempts: 60, Interval: 5 * time.Second}

func TestPoller_AuthorizedAfterPendingAttempts(t *testing.T) {
	for _, n := range []int{0, 1, 7, 59} {
		broker := &scriptedPoller{authorizeAt: n + 1, final: model.Authorized(model.Credential{AccountID: "acc"})}
		sleeper := &fakeSleeper{}
		p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(sleeper)

		cred, err := p.Await(context.Background(), model.DeviceAuthorization{DeviceCode: "dc"}, nil)

		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, "acc", cred.AccountID)
		assert.Equal(t, n+1, broker.attempts)
		assert.Equal(t, time.Duration(n)*5*time.Second, sleeper.total(), "n=%d", n)
	}
}

func TestPoller_TimesOutAtExactlyMaxAttempts(t *testing.T) {
	broker := &scriptedPoller{}
	sleeper := &fakeSleeper{}
	p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(sleeper)

	_, err := p.Await(context.Background(), model.DeviceAuthorization{DeviceCode: "dc"}, nil)

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "timeout", authErr.Code)
	assert.Equal(t, 60, broker.attempts)
	assert.Equal(t, 59, sleeper.count())
	assert.Equal(t, 295*time.Second, sleeper.total())
}

func TestPoller_FailedOutcomeStops(t *testing.T) {
	broker := &scriptedPoller{authorizeAt: 3, final: model.Failed("Authentication failed")}
	sleeper := &fakeSleeper{}
	p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(sleeper)

	_, err := p.Await(context.Background(), model.DeviceAuthorization{DeviceCode: "dc"}, nil)

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Authentication failed", authErr.Message)
	assert.Equal(t, 3, broker.attempts)
	assert.Equal(t, 2, sleeper.count())
}

func TestPoller_OnStartCalledOnceBeforePolling(t *testing.T) {
	broker := &scriptedPoller{authorizeAt: 4, final: model.Authorized(model.Credential{})}
	p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(&fakeSleeper{})

	calls := 0
	auth := model.DeviceAuthorization{DeviceCode: "dc", VerificationURIComplete: "https://v"}
	_, err := p.Await(context.Background(), auth, func(got model.DeviceAuthorization) {
		calls++
		assert.Equal(t, auth, got)
		assert.Zero(t, broker.attempts)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPoller_CancelledWhileWaiting(t *testing.T) {
	broker := &scriptedPoller{}
	sleeper := &fakeSleeper{failAt: 3, fail: context.Canceled}
	p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(sleeper)

	_, err := p.Await(context.Background(), model.DeviceAuthorization{DeviceCode: "dc"}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, broker.attempts)
}

// cancellingPoller cancels the caller's context mid-attempt and reports the
// failure the broker sees when its request is aborted.
type cancellingPoller struct {
	cancel context.CancelFunc
}

func (p *cancellingPoller) PollDeviceAuthorization(context.Context, string) model.PollOutcome {
	p.cancel()
	return model.Failed("Authentication failed")
}

func TestPoller_CancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPoller(&cancellingPoller{cancel: cancel}, defaultPollConfig, logger.Discard()).WithSleeper(&fakeSleeper{})

	_, err := p.Await(ctx, model.DeviceAuthorization{DeviceCode: "dc"}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "device authorization cancelled")
	var authErr *model.AuthError
	assert.False(t, errors.As(err, &authErr))
}

func TestPoller_AlreadyCancelled(t *testing.T) {
	broker := &scriptedPoller{}
	p := NewPoller(broker, defaultPollConfig, logger.Discard()).WithSleeper(&fakeSleeper{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Await(ctx, model.DeviceAuthorization{DeviceCode: "dc"}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, broker.attempts)
}

func TestTimerSleeper(t *testing.T) {
	require.NoError(t, TimerSleeper{}.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
