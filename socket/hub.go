package socket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"swipebite_server/models"
	"swipebite_server/notify"
	"swipebite_server/services"
)

// Member is a connected client as the hub sees it. socketio.Conn
// satisfies it.
type Member interface {
	ID() string
	Leave(room string)
	Emit(eventName string, v ...interface{})
}

// Hub fans session snapshots out to socket rooms. Each session with at
// least one connected client holds one gateway subscription. Members whose
// participant record turns removed are evicted before the snapshot is
// broadcast.
type Hub struct {
	gateway   services.Gateway
	broadcast func(sessionID string, s *models.SwipeSession)
	logger    *zap.Logger

	mu     sync.Mutex
	rooms  map[string]*room
	joined map[string]map[string]struct{} // conn id -> session ids
}

type room struct {
	sub     notify.Subscription
	members map[string]member
}

type member struct {
	conn   Member
	userID string
}

func NewHub(gateway services.Gateway, broadcast func(string, *models.SwipeSession), logger *zap.Logger) *Hub {
	return &Hub{
		gateway:   gateway,
		broadcast: broadcast,
		logger:    logger,
		rooms:     make(map[string]*room),
		joined:    make(map[string]map[string]struct{}),
	}
}

// Join adds conn to the session's room and returns the current snapshot.
// Only participants who have not been removed may listen.
func (h *Hub) Join(ctx context.Context, conn Member, user models.User, sessionID string) (*models.SwipeSession, error) {
	s, err := h.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p := s.Participant(user.ID)
	if p == nil {
		return nil, models.ErrNotInSession
	}
	if p.Status == models.ParticipantRemoved {
		return nil, models.ErrRemovedFromSession
	}

	h.mu.Lock()
	_, ok := h.rooms[sessionID]
	h.mu.Unlock()

	var sub notify.Subscription
	if !ok {
		sub, err = h.gateway.Subscribe(ctx, sessionID, func(update *models.SwipeSession) {
			h.deliver(sessionID, update)
		})
		if err != nil {
			return nil, err
		}
	}

	h.mu.Lock()
	r, ok := h.rooms[sessionID]
	if !ok {
		r = &room{sub: sub, members: make(map[string]member)}
		h.rooms[sessionID] = r
		sub = nil
	}
	r.members[conn.ID()] = member{conn: conn, userID: user.ID}
	if h.joined[conn.ID()] == nil {
		h.joined[conn.ID()] = make(map[string]struct{})
	}
	h.joined[conn.ID()][sessionID] = struct{}{}
	h.mu.Unlock()

	// another join won the race to subscribe
	if sub != nil {
		h.unsubscribe(sessionID, sub)
	}
	return s, nil
}

// deliver evicts members who are no longer allowed in the room, then
// broadcasts the snapshot to the rest.
func (h *Hub) deliver(sessionID string, update *models.SwipeSession) {
	var evicted []Member
	var emptied notify.Subscription

	h.mu.Lock()
	if r, ok := h.rooms[sessionID]; ok {
		for connID, m := range r.members {
			if p := update.Participant(m.userID); p == nil || p.Status == models.ParticipantRemoved {
				evicted = append(evicted, m.conn)
				emptied = h.leaveLocked(connID, sessionID)
			}
		}
	}
	h.mu.Unlock()

	for _, conn := range evicted {
		conn.Leave(sessionID)
		conn.Emit(errorEvent, map[string]string{"error": models.ErrRemovedFromSession.Error()})
		h.logger.Info("Evicted removed participant from room",
			zap.String("conn_id", conn.ID()), zap.String("session_id", sessionID))
	}
	h.broadcast(sessionID, update)
	if emptied != nil {
		h.unsubscribe(sessionID, emptied)
	}
}

// Leave removes connID from one room.
func (h *Hub) Leave(connID, sessionID string) {
	h.mu.Lock()
	sub := h.leaveLocked(connID, sessionID)
	h.mu.Unlock()
	if sub != nil {
		h.unsubscribe(sessionID, sub)
	}
}

// Drop removes connID from every room it joined.
func (h *Hub) Drop(connID string) {
	subs := make(map[string]notify.Subscription)
	h.mu.Lock()
	for sessionID := range h.joined[connID] {
		if sub := h.leaveLocked(connID, sessionID); sub != nil {
			subs[sessionID] = sub
		}
	}
	h.mu.Unlock()
	for sessionID, sub := range subs {
		h.unsubscribe(sessionID, sub)
	}
}

// leaveLocked removes connID from the room and returns the room's
// subscription when it was the last member.
func (h *Hub) leaveLocked(connID, sessionID string) notify.Subscription {
	if sessions := h.joined[connID]; sessions != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(h.joined, connID)
		}
	}

	r, ok := h.rooms[sessionID]
	if !ok {
		return nil
	}
	delete(r.members, connID)
	if len(r.members) > 0 {
		return nil
	}
	delete(h.rooms, sessionID)
	return r.sub
}

func (h *Hub) unsubscribe(sessionID string, sub notify.Subscription) {
	if err := sub.Unsubscribe(); err != nil {
		h.logger.Warn("Failed to drop session subscription", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Rooms returns the number of sessions with listeners.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Close drops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room)
	h.joined = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for sessionID, r := range rooms {
		h.unsubscribe(sessionID, r.sub)
	}
}
