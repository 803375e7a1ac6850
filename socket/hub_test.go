package socket

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swipebite_server/models"
	"swipebite_server/notify"
	"swipebite_server/store"
)

var (
	alice = models.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com"}
	bob   = models.User{ID: "u-bob", Name: "Bob", Email: "bob@example.com"}
	carol = models.User{ID: "u-carol", Name: "Carol", Email: "carol@example.com"}
)

type recorder struct {
	mu    sync.Mutex
	calls map[string][]*models.SwipeSession
}

func (r *recorder) broadcast(sessionID string, s *models.SwipeSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[sessionID] = append(r.calls[sessionID], s)
}

func (r *recorder) count(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls[sessionID])
}

type fakeConn struct {
	id     string
	mu     sync.Mutex
	left   []string
	events []string
}

func newConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Leave(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, room)
}

func (c *fakeConn) Emit(eventName string, v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventName)
}

func setup(t *testing.T) (*Hub, *store.NotifyingGateway, *notify.LocalBus, *recorder, *models.SwipeSession) {
	t.Helper()
	ctx := context.Background()
	bus := notify.NewLocalBus()
	gateway := store.NewGateway(store.NewMemoryBackend(), bus, zap.NewNop())
	s, err := gateway.CreateSession(ctx, alice, "HAPPY-TACO-7", 4, true)
	require.NoError(t, err)
	require.NoError(t, gateway.AddParticipant(ctx, s.ID, bob))

	rec := &recorder{calls: make(map[string][]*models.SwipeSession)}
	hub := NewHub(gateway, rec.broadcast, zap.NewNop())
	t.Cleanup(hub.Close)
	return hub, gateway, bus, rec, s
}

func TestHub_BroadcastsToJoinedRoom(t *testing.T) {
	ctx := context.Background()
	hub, gateway, bus, rec, s := setup(t)

	snap, err := hub.Join(ctx, newConn("c1"), alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, snap.ID)
	_, err = hub.Join(ctx, newConn("c2"), bob, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Rooms())
	assert.Equal(t, 1, bus.Subscribers(s.ID), "one subscription per room")

	_, err = gateway.SetSessionActive(ctx, s.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 1, rec.count(s.ID))
	assert.Equal(t, models.SessionActive, rec.calls[s.ID][0].Status)
}

func TestHub_LastLeaveDropsSubscription(t *testing.T) {
	ctx := context.Background()
	hub, gateway, bus, rec, s := setup(t)

	_, err := hub.Join(ctx, newConn("c1"), alice, s.ID)
	require.NoError(t, err)
	_, err = hub.Join(ctx, newConn("c2"), bob, s.ID)
	require.NoError(t, err)

	hub.Leave("c1", s.ID)
	assert.Equal(t, 1, bus.Subscribers(s.ID))

	hub.Drop("c2")
	assert.Equal(t, 0, hub.Rooms())
	assert.Equal(t, 0, bus.Subscribers(s.ID))

	require.NoError(t, gateway.SetSessionStatus(ctx, s.ID, models.SessionCompleted))
	assert.Zero(t, rec.count(s.ID))

	// unknown conn and room are no-ops
	hub.Leave("c9", "missing")
	hub.Drop("c9")
}

func TestHub_RejectsOutsiders(t *testing.T) {
	ctx := context.Background()
	hub, gateway, _, _, s := setup(t)

	_, err := hub.Join(ctx, newConn("c3"), carol, s.ID)
	assert.ErrorIs(t, err, models.ErrNotInSession)

	require.NoError(t, gateway.SetParticipantStatus(ctx, s.ID, bob.ID, models.ParticipantRemoved))
	_, err = hub.Join(ctx, newConn("c2"), bob, s.ID)
	assert.ErrorIs(t, err, models.ErrRemovedFromSession)

	_, err = hub.Join(ctx, newConn("c1"), alice, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Equal(t, 0, hub.Rooms())
}

func TestHub_EvictsParticipantRemovedAfterJoining(t *testing.T) {
	ctx := context.Background()
	hub, gateway, bus, rec, s := setup(t)

	hostConn, guestConn := newConn("c1"), newConn("c2")
	_, err := hub.Join(ctx, hostConn, alice, s.ID)
	require.NoError(t, err)
	_, err = hub.Join(ctx, guestConn, bob, s.ID)
	require.NoError(t, err)

	require.NoError(t, gateway.SetParticipantStatus(ctx, s.ID, bob.ID, models.ParticipantRemoved))

	assert.Equal(t, []string{s.ID}, guestConn.left)
	assert.Equal(t, []string{errorEvent}, guestConn.events)
	assert.Empty(t, hostConn.left)
	require.Equal(t, 1, rec.count(s.ID), "remaining members still get the snapshot")
	assert.Equal(t, 1, bus.Subscribers(s.ID))

	// a later change is not pushed to the evicted conn again
	_, err = gateway.SetSessionActive(ctx, s.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, guestConn.left, 1)
	assert.Equal(t, 2, rec.count(s.ID))
}

func TestHub_EvictingLastMemberDropsSubscription(t *testing.T) {
	ctx := context.Background()
	hub, gateway, bus, _, s := setup(t)

	guestConn := newConn("c2")
	_, err := hub.Join(ctx, guestConn, bob, s.ID)
	require.NoError(t, err)

	require.NoError(t, gateway.SetParticipantStatus(ctx, s.ID, bob.ID, models.ParticipantRemoved))
	assert.Equal(t, 0, hub.Rooms())
	assert.Equal(t, 0, bus.Subscribers(s.ID))
}

// blockingGateway holds Subscribe until release is closed.
type blockingGateway struct {
	*store.NotifyingGateway
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Subscribe(ctx context.Context, sessionID string, onChange func(*models.SwipeSession)) (notify.Subscription, error) {
	close(g.entered)
	<-g.release
	return g.NotifyingGateway.Subscribe(ctx, sessionID, onChange)
}

func TestHub_SlowSubscribeDoesNotBlockOtherRooms(t *testing.T) {
	ctx := context.Background()
	_, gateway, _, rec, s := setup(t)
	slow := &blockingGateway{NotifyingGateway: gateway, entered: make(chan struct{}), release: make(chan struct{})}
	hub := NewHub(slow, rec.broadcast, zap.NewNop())
	defer hub.Close()

	done := make(chan error, 1)
	go func() {
		_, err := hub.Join(ctx, newConn("c1"), alice, s.ID)
		done <- err
	}()
	<-slow.entered

	// lock-taking calls complete while Subscribe is in flight
	hub.Drop("c9")
	assert.Equal(t, 0, hub.Rooms())

	close(slow.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, hub.Rooms())
}
