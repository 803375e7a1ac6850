// Package store holds the persistence backends behind the session gateway.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"swipebite_server/models"
	"swipebite_server/notify"
)

// Backend is the CRUD half of the persistence gateway. Implementations
// report domain failures with the models sentinels and wrap infrastructure
// failures in *models.PersistenceError.
type Backend interface {
	CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error)
	GetSessionByCode(ctx context.Context, code string) (*models.SwipeSession, error)
	AddParticipant(ctx context.Context, sessionID string, user models.User) error
	SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error
	SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error)
	SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error
	TransferHost(ctx context.Context, sessionID, newHostUserID string) error
	RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error
	AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error)
}

// refetchTimeout bounds the read issued for each change notification.
const refetchTimeout = 5 * time.Second

// NotifyingGateway publishes a change event after every committed mutation
// and turns change events back into fresh session snapshots for subscribers.
type NotifyingGateway struct {
	Backend
	bus    notify.Bus
	logger *zap.Logger
}

// NewGateway combines a backend with a change bus.
func NewGateway(backend Backend, bus notify.Bus, logger *zap.Logger) *NotifyingGateway {
	return &NotifyingGateway{Backend: backend, bus: bus, logger: logger}
}

func (g *NotifyingGateway) publish(ctx context.Context, sessionID string) {
	// The write already committed; a lost notification only delays other
	// clients until their next refresh.
	if err := g.bus.Publish(context.WithoutCancel(ctx), sessionID); err != nil {
		g.logger.Warn("Failed to publish session change", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (g *NotifyingGateway) CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error) {
	s, err := g.Backend.CreateSession(ctx, host, code, maxParticipants, requiresAllToMatch)
	if err != nil {
		return nil, err
	}
	g.publish(ctx, s.ID)
	return s, nil
}

func (g *NotifyingGateway) AddParticipant(ctx context.Context, sessionID string, user models.User) error {
	if err := g.Backend.AddParticipant(ctx, sessionID, user); err != nil {
		return err
	}
	g.publish(ctx, sessionID)
	return nil
}

func (g *NotifyingGateway) SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error {
	if err := g.Backend.SetParticipantStatus(ctx, sessionID, userID, status); err != nil {
		return err
	}
	g.publish(ctx, sessionID)
	return nil
}

func (g *NotifyingGateway) SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error) {
	changed, err := g.Backend.SetSessionActive(ctx, sessionID, hostUserID)
	if err != nil {
		return false, err
	}
	if changed {
		g.publish(ctx, sessionID)
	}
	return changed, nil
}

func (g *NotifyingGateway) SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	if err := g.Backend.SetSessionStatus(ctx, sessionID, status); err != nil {
		return err
	}
	g.publish(ctx, sessionID)
	return nil
}

func (g *NotifyingGateway) TransferHost(ctx context.Context, sessionID, newHostUserID string) error {
	if err := g.Backend.TransferHost(ctx, sessionID, newHostUserID); err != nil {
		return err
	}
	g.publish(ctx, sessionID)
	return nil
}

func (g *NotifyingGateway) RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error {
	if err := g.Backend.RecordSwipe(ctx, sessionID, userID, recipeID, isLike); err != nil {
		return err
	}
	g.publish(ctx, sessionID)
	return nil
}

func (g *NotifyingGateway) AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error) {
	added, err := g.Backend.AddMatch(ctx, sessionID, recipeID)
	if err != nil {
		return false, err
	}
	if added {
		g.publish(ctx, sessionID)
	}
	return added, nil
}

// Subscribe refetches the session on every change event and hands the
// snapshot to onChange. Failed refetches are logged and skipped.
func (g *NotifyingGateway) Subscribe(ctx context.Context, sessionID string, onChange func(*models.SwipeSession)) (notify.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := g.bus.Subscribe(sessionID, func(notify.Event) {
		rctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
		defer cancel()

		s, err := g.Backend.GetSession(rctx, sessionID)
		if err != nil {
			g.logger.Warn("Failed to refresh session after change", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
		onChange(s)
	})
	if err != nil {
		return nil, models.NewPersistenceError("subscribe", err)
	}
	return sub, nil
}
