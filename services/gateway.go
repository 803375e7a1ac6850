package services

import (
	"context"

	"swipebite_server/models"
	"swipebite_server/notify"
	"swipebite_server/store"
)

// Gateway is the persistence and change-notification contract the session
// coordinator depends on. store.NotifyingGateway and RetryingGateway
// implement it.
type Gateway interface {
	store.Backend
	Subscribe(ctx context.Context, sessionID string, onChange func(*models.SwipeSession)) (notify.Subscription, error)
}

var (
	_ Gateway = (*store.NotifyingGateway)(nil)
	_ Gateway = (*RetryingGateway)(nil)
)
