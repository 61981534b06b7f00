package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
)

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep implements Sleeper. The timer is released on every return path.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DeviceCodePoller makes a single device-code poll attempt.
type DeviceCodePoller interface {
	PollDeviceAuthorization(ctx context.Context, deviceCode string) model.PollOutcome
}

var _ DeviceCodePoller = (*Broker)(nil)

// Poller drives repeated device-code polls until authorization, failure,
// cancellation or the attempt limit.
type Poller struct {
	broker      DeviceCodePoller
	maxAttempts int
	interval    time.Duration
	sleeper     Sleeper
	logger      *slog.Logger
}

// NewPoller creates a poller using a real timer.
func NewPoller(broker DeviceCodePoller, cfg config.PollConfig, log *slog.Logger) *Poller {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Poller{
		broker:      broker,
		maxAttempts: attempts,
		interval:    cfg.Interval,
		sleeper:     TimerSleeper{},
		logger:      logger.Component(log, "poller"),
	}
}

// WithSleeper replaces the sleeper. Tests pass a simulated clock.
func (p *Poller) WithSleeper(s Sleeper) *Poller {
	p.sleeper = s
	return p
}

// Await polls auth.DeviceCode until it resolves. onStart, when non-nil, is called
// exactly once before the first attempt, typically to show the verification URL.
func (p *Poller) Await(ctx context.Context, auth model.DeviceAuthorization, onStart func(model.DeviceAuthorization)) (model.Credential, error) {
	if onStart != nil {
		onStart(auth)
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Credential{}, fmt.Errorf("device authorization cancelled: %w", err)
		}

		outcome := p.broker.PollDeviceAuthorization(ctx, auth.DeviceCode)
		switch outcome.Status {
		case model.PollAuthorized:
			p.logger.Info("device authorization granted",
				slog.Int("attempt", attempt),
				slog.String("account_id", outcome.Credential.AccountID),
			)
			return outcome.Credential, nil
		case model.PollFailed:
			if err := ctx.Err(); err != nil {
				return model.Credential{}, fmt.Errorf("device authorization cancelled: %w", err)
			}
			return model.Credential{}, &model.AuthError{Message: outcome.Reason}
		}

		p.logger.Debug("device authorization pending", slog.Int("attempt", attempt))
		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleeper.Sleep(ctx, p.interval); err != nil {
			return model.Credential{}, fmt.Errorf("device authorization cancelled: %w", err)
		}
	}

	p.logger.Warn("device authorization timed out", slog.Int("attempts", p.maxAttempts))
	return model.Credential{}, &model.AuthError{
		Message: fmt.Sprintf("Device authorization timed out after %d attempts", p.maxAttempts),
		Code:    "timeout",
	}
}
