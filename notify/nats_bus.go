package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"swipebite_server/config"
)

// SubjectPrefix namespaces session change events on NATS.
const SubjectPrefix = "sessions"

// Subject returns the NATS subject for a session's change events:
//
//	sessions.{session_id}.changed
func Subject(sessionID string) string {
	return fmt.Sprintf("%s.%s.changed", SubjectPrefix, sessionID)
}

// NATSBus publishes change events over NATS so every replica holding a
// subscription for the session refreshes its snapshot.
type NATSBus struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewNATSBus wraps an established connection. The bus owns the connection
// and drains it on Close.
func NewNATSBus(nc *nats.Conn, logger *zap.Logger) *NATSBus {
	return &NATSBus{nc: nc, logger: logger}
}

// ConnectNATS dials the configured server with reconnect settings.
func ConnectNATS(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("swipebite"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info("Connected to NATS", zap.String("url", cfg.URL))
	return nc, nil
}

func (b *NATSBus) Publish(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Event{SessionID: sessionID, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.nc.Publish(Subject(sessionID), data); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (b *NATSBus) Subscribe(sessionID string, handler func(Event)) (Subscription, error) {
	sub, err := b.nc.Subscribe(Subject(sessionID), func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn("Dropping malformed change event",
				zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(sessionID), err)
	}
	return sub, nil
}

func (b *NATSBus) Close() error {
	return b.nc.Drain()
}
