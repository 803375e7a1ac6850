package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"swipebite_server/metrics"
	"swipebite_server/models"
	"swipebite_server/notify"
)

// RetryingGateway retries gateway calls that fail with a *PersistenceError.
// Domain errors are returned from the first attempt untouched; a call that
// fails on every attempt comes back as *models.RetryExhaustedError so
// callers can tell it from a first-attempt failure.
type RetryingGateway struct {
	next     Gateway
	attempts int
	interval time.Duration
	logger   *zap.Logger
}

// NewRetryingGateway wraps next with a budget of attempts calls per
// operation, backing off exponentially from interval.
func NewRetryingGateway(next Gateway, attempts int, interval time.Duration, logger *zap.Logger) *RetryingGateway {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingGateway{next: next, attempts: attempts, interval: interval, logger: logger}
}

func retryable(err error) bool {
	var perr *models.PersistenceError
	return errors.As(err, &perr)
}

func retry[T any](ctx context.Context, g *RetryingGateway, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.interval
	b.MaxInterval = 20 * g.interval

	tries := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		tries++
		v, err := fn()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(g.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.GatewayRetries.WithLabelValues(op, "retry").Inc()
			g.logger.Warn("Gateway call failed, retrying",
				zap.String("op", op), zap.Int("attempt", tries), zap.Duration("backoff", next), zap.Error(err))
		}),
	)
	if err == nil {
		return res, nil
	}
	if retryable(err) && tries > 1 && tries >= g.attempts {
		metrics.GatewayRetries.WithLabelValues(op, "exhausted").Inc()
		g.logger.Error("Gateway call failed after retries", zap.String("op", op), zap.Int("attempts", tries), zap.Error(err))
		return res, &models.RetryExhaustedError{Op: op, Attempts: tries, Err: err}
	}
	return res, err
}

func retryErr(ctx context.Context, g *RetryingGateway, op string, fn func() error) error {
	_, err := retry(ctx, g, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (g *RetryingGateway) CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error) {
	return retry(ctx, g, "create session", func() (*models.SwipeSession, error) {
		return g.next.CreateSession(ctx, host, code, maxParticipants, requiresAllToMatch)
	})
}

func (g *RetryingGateway) GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	return retry(ctx, g, "get session", func() (*models.SwipeSession, error) {
		return g.next.GetSession(ctx, sessionID)
	})
}

func (g *RetryingGateway) GetSessionByCode(ctx context.Context, code string) (*models.SwipeSession, error) {
	return retry(ctx, g, "get session by code", func() (*models.SwipeSession, error) {
		return g.next.GetSessionByCode(ctx, code)
	})
}

func (g *RetryingGateway) AddParticipant(ctx context.Context, sessionID string, user models.User) error {
	return retryErr(ctx, g, "add participant", func() error {
		return g.next.AddParticipant(ctx, sessionID, user)
	})
}

func (g *RetryingGateway) SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error {
	return retryErr(ctx, g, "set participant status", func() error {
		return g.next.SetParticipantStatus(ctx, sessionID, userID, status)
	})
}

func (g *RetryingGateway) SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error) {
	return retry(ctx, g, "start session", func() (bool, error) {
		return g.next.SetSessionActive(ctx, sessionID, hostUserID)
	})
}

func (g *RetryingGateway) SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	return retryErr(ctx, g, "set session status", func() error {
		return g.next.SetSessionStatus(ctx, sessionID, status)
	})
}

func (g *RetryingGateway) TransferHost(ctx context.Context, sessionID, newHostUserID string) error {
	return retryErr(ctx, g, "transfer host", func() error {
		return g.next.TransferHost(ctx, sessionID, newHostUserID)
	})
}

func (g *RetryingGateway) RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error {
	return retryErr(ctx, g, "record swipe", func() error {
		return g.next.RecordSwipe(ctx, sessionID, userID, recipeID, isLike)
	})
}

func (g *RetryingGateway) AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error) {
	return retry(ctx, g, "add match", func() (bool, error) {
		return g.next.AddMatch(ctx, sessionID, recipeID)
	})
}

func (g *RetryingGateway) Subscribe(ctx context.Context, sessionID string, onChange func(*models.SwipeSession)) (notify.Subscription, error) {
	return retry(ctx, g, "subscribe", func() (notify.Subscription, error) {
		return g.next.Subscribe(ctx, sessionID, onChange)
	})
}
