// Package notify fans out "session changed" events to subscribers, either
// inside one process or across replicas over NATS.
package notify

import (
	"context"
	"sync"
	"time"
)

// Event announces that a session record was mutated.
type Event struct {
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
}

// Subscription stops delivery when unsubscribed.
type Subscription interface {
	Unsubscribe() error
}

// Bus publishes and delivers session change events.
type Bus interface {
	Publish(ctx context.Context, sessionID string) error
	Subscribe(sessionID string, handler func(Event)) (Subscription, error)
	Close() error
}

// LocalBus delivers events synchronously to in-process subscribers.
// Handlers run on the publishing goroutine without the bus lock held, so a
// handler may unsubscribe itself.
type LocalBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]func(Event)
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[string]map[uint64]func(Event))}
}

func (b *LocalBus) Publish(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.handlers[sessionID]))
	for _, h := range b.handlers[sessionID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	ev := Event{SessionID: sessionID, At: time.Now().UTC()}
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(sessionID string, handler func(Event)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[sessionID] == nil {
		b.handlers[sessionID] = make(map[uint64]func(Event))
	}
	b.handlers[sessionID][id] = handler

	return &localSubscription{bus: b, sessionID: sessionID, id: id}, nil
}

// Subscribers returns the number of handlers registered for sessionID.
func (b *LocalBus) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[sessionID])
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.handlers = make(map[string]map[uint64]func(Event))
	b.mu.Unlock()
	return nil
}

type localSubscription struct {
	bus       *LocalBus
	sessionID string
	id        uint64
	once      sync.Once
}

func (s *localSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if set := s.bus.handlers[s.sessionID]; set != nil {
			delete(set, s.id)
			if len(set) == 0 {
				delete(s.bus.handlers, s.sessionID)
			}
		}
	})
	return nil
}
