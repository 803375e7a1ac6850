package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"swipebite_server/models"
)

// MemoryBackend keeps sessions in process memory. Every method works on a
// deep copy, so callers never share state with the store.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]*models.SwipeSession
	codes    map[string]string // session code -> session id
	now      func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sessions: make(map[string]*models.SwipeSession),
		codes:    make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryBackend) CreateSession(ctx context.Context, host models.User, code string, maxParticipants int, requiresAllToMatch bool) (*models.SwipeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewPersistenceError("create session", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[code]; taken {
		return nil, models.ErrSessionCodeTaken
	}

	now := m.now()
	s := &models.SwipeSession{
		ID:                 uuid.NewString(),
		HostID:             host.ID,
		Matches:            []string{},
		Status:             models.SessionWaiting,
		CreatedAt:          now,
		MaxParticipants:    maxParticipants,
		RequiresAllToMatch: requiresAllToMatch,
		SessionCode:        code,
	}
	s.Participants = []models.SessionParticipant{newParticipant(s.ID, host, now)}

	m.sessions[s.ID] = s
	m.codes[code] = s.ID
	return s.Clone(), nil
}

func (m *MemoryBackend) GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewPersistenceError("get session", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryBackend) GetSessionByCode(ctx context.Context, code string) (*models.SwipeSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewPersistenceError("get session by code", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.codes[code]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return m.sessions[id].Clone(), nil
}

// AddParticipant enforces capacity under the store lock, so concurrent
// joins can never overfill a session.
func (m *MemoryBackend) AddParticipant(ctx context.Context, sessionID string, user models.User) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("add participant", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if s.Status.Terminal() {
		return models.ErrSessionClosed
	}

	existing := s.Participant(user.ID)
	if existing != nil {
		switch existing.Status {
		case models.ParticipantActive:
			return nil
		case models.ParticipantRemoved:
			return models.ErrRemovedFromSession
		}
	}
	if s.ActiveCount() >= s.MaxParticipants {
		return models.ErrSessionFull
	}

	if existing != nil {
		existing.Status = models.ParticipantActive
		existing.User = user
		return nil
	}
	s.Participants = append(s.Participants, newParticipant(s.ID, user, m.now()))
	return nil
}

func (m *MemoryBackend) SetParticipantStatus(ctx context.Context, sessionID, userID string, status models.ParticipantStatus) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("set participant status", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	p := s.Participant(userID)
	if p == nil {
		return models.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (m *MemoryBackend) SetSessionActive(ctx context.Context, sessionID, hostUserID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, models.NewPersistenceError("start session", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, models.ErrSessionNotFound
	}
	if s.HostID != hostUserID {
		return false, models.ErrUnauthorized
	}
	switch {
	case s.Status == models.SessionActive:
		return false, nil
	case s.Status.Terminal():
		return false, models.ErrSessionClosed
	}
	s.Status = models.SessionActive
	return true, nil
}

func (m *MemoryBackend) SetSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("set session status", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (m *MemoryBackend) TransferHost(ctx context.Context, sessionID, newHostUserID string) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("transfer host", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if p := s.Participant(newHostUserID); p == nil || !p.IsActive() {
		return models.ErrParticipantNotFound
	}
	s.HostID = newHostUserID
	return nil
}

func (m *MemoryBackend) RecordSwipe(ctx context.Context, sessionID, userID, recipeID string, isLike bool) error {
	if err := ctx.Err(); err != nil {
		return models.NewPersistenceError("record swipe", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if err := swipeAllowed(s.Status); err != nil {
		return err
	}
	p := s.Participant(userID)
	if p == nil || !p.IsActive() {
		return models.ErrNotInSession
	}
	return p.RecordSwipe(recipeID, isLike)
}

func (m *MemoryBackend) AddMatch(ctx context.Context, sessionID, recipeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, models.NewPersistenceError("add match", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, models.ErrSessionNotFound
	}
	return s.AddMatch(recipeID), nil
}

func newParticipant(sessionID string, user models.User, joinedAt time.Time) models.SessionParticipant {
	return models.SessionParticipant{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    user.ID,
		User:      user,
		JoinedAt:  joinedAt,
		Status:    models.ParticipantActive,
		Likes:     []string{},
		Dislikes:  []string{},
	}
}

func swipeAllowed(status models.SessionStatus) error {
	switch {
	case status == models.SessionWaiting:
		return models.ErrSessionNotStarted
	case status.Terminal():
		return models.ErrSessionClosed
	}
	return nil
}
