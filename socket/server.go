package socket

import (
	"context"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"

	"swipebite_server/middleware"
	"swipebite_server/models"
	"swipebite_server/services"
)

const (
	namespace   = "/"
	updateEvent = "sessionUpdated"
	errorEvent  = "sessionError"
	joinTimeout = 5 * time.Second
)

type roomRequest struct {
	SessionID string `json:"sessionId"`
}

// NewSocketServer initializes a Socket.IO server that pushes session
// snapshots to participants. Clients authenticate with ?token=<jwt> and
// emit "join"/"leave" with {"sessionId": ...}.
func NewSocketServer(gateway services.Gateway, secret []byte, logger *zap.Logger) (*socketio.Server, *Hub) {
	server := socketio.NewServer(nil)
	hub := NewHub(gateway, func(sessionID string, s *models.SwipeSession) {
		server.BroadcastToRoom(namespace, sessionID, updateEvent, s)
	}, logger)

	server.OnConnect(namespace, func(c socketio.Conn) error {
		u := c.URL()
		user, err := middleware.ParseToken(secret, u.Query().Get("token"))
		if err != nil {
			logger.Debug("Socket rejected", zap.String("conn_id", c.ID()), zap.Error(err))
			return err
		}
		c.SetContext(user)
		logger.Debug("Socket connected", zap.String("conn_id", c.ID()), zap.String("user_id", user.ID))
		return nil
	})

	server.OnEvent(namespace, "join", func(c socketio.Conn, req roomRequest) {
		user, ok := c.Context().(models.User)
		if !ok || req.SessionID == "" {
			c.Emit(errorEvent, map[string]string{"error": "invalid join request"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		s, err := hub.Join(ctx, c, user, req.SessionID)
		if err != nil {
			logger.Info("Socket join rejected",
				zap.String("conn_id", c.ID()), zap.String("session_id", req.SessionID), zap.Error(err))
			c.Emit(errorEvent, map[string]string{"error": err.Error()})
			return
		}
		c.Join(req.SessionID)
		c.Emit(updateEvent, s)
	})

	server.OnEvent(namespace, "leave", func(c socketio.Conn, req roomRequest) {
		c.Leave(req.SessionID)
		hub.Leave(c.ID(), req.SessionID)
	})

	server.OnError(namespace, func(c socketio.Conn, err error) {
		logger.Warn("Socket error", zap.Error(err))
	})

	server.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		hub.Drop(c.ID())
		logger.Debug("Socket disconnected", zap.String("conn_id", c.ID()), zap.String("reason", reason))
	})

	return server, hub
}
