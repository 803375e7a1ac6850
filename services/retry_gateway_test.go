package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"swipebite_server/models"
	"swipebite_server/notify"
	"swipebite_server/store"
)

// flakyGateway fails GetSession with a persistence error a fixed number of
// times before delegating.
type flakyGateway struct {
	Gateway
	failures int
	calls    int
	err      error
}

func (f *flakyGateway) GetSession(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.Gateway.GetSession(ctx, sessionID)
}

func newMemoryGateway() *store.NotifyingGateway {
	return store.NewGateway(store.NewMemoryBackend(), notify.NewLocalBus(), zap.NewNop())
}

func TestRetryingGateway_RecoversWithinBudget(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryGateway()
	s, err := inner.CreateSession(ctx, alice, "HAPPY-PASTA-1", 4, true)
	require.NoError(t, err)

	flaky := &flakyGateway{Gateway: inner, failures: 2, err: models.NewPersistenceError("get session", errors.New("connection reset"))}
	g := NewRetryingGateway(flaky, 3, time.Millisecond, zap.NewNop())

	got, err := g.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetryingGateway_Exhausted(t *testing.T) {
	flaky := &flakyGateway{Gateway: newMemoryGateway(), failures: 10, err: models.NewPersistenceError("get session", errors.New("connection reset"))}
	g := NewRetryingGateway(flaky, 3, time.Millisecond, zap.NewNop())

	_, err := g.GetSession(context.Background(), "s1")
	var exhausted *models.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "get session", exhausted.Op)
	assert.Equal(t, 3, flaky.calls)

	var perr *models.PersistenceError
	assert.ErrorAs(t, err, &perr, "cause stays inspectable")
}

func TestRetryingGateway_DomainErrorsAreNotRetried(t *testing.T) {
	flaky := &flakyGateway{Gateway: newMemoryGateway(), failures: 10, err: models.ErrSessionNotFound}
	g := NewRetryingGateway(flaky, 3, time.Millisecond, zap.NewNop())

	_, err := g.GetSession(context.Background(), "s1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	var exhausted *models.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, flaky.calls)
}

func TestRetryingGateway_SingleAttemptIsNotExhaustion(t *testing.T) {
	flaky := &flakyGateway{Gateway: newMemoryGateway(), failures: 10, err: models.NewPersistenceError("get session", errors.New("timeout"))}
	g := NewRetryingGateway(flaky, 1, time.Millisecond, zap.NewNop())

	_, err := g.GetSession(context.Background(), "s1")
	var perr *models.PersistenceError
	require.ErrorAs(t, err, &perr)
	var exhausted *models.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, flaky.calls)
}

func TestRetryingGateway_PassesThroughSuccess(t *testing.T) {
	ctx := context.Background()
	g := NewRetryingGateway(newMemoryGateway(), 3, time.Millisecond, zap.NewNop())

	s, err := g.CreateSession(ctx, alice, "HAPPY-PASTA-1", 4, true)
	require.NoError(t, err)

	var updates int
	sub, err := g.Subscribe(ctx, s.ID, func(*models.SwipeSession) { updates++ })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, g.AddParticipant(ctx, s.ID, bob))
	assert.Equal(t, 1, updates)
}

func TestRetryingGateway_LogsEachRetry(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryGateway()
	s, err := inner.CreateSession(ctx, alice, "HAPPY-PASTA-2", 4, true)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	flaky := &flakyGateway{Gateway: inner, failures: 2, err: models.NewPersistenceError("get session", errors.New("timeout"))}
	g := NewRetryingGateway(flaky, 3, time.Millisecond, zap.New(core))

	_, err = g.GetSession(ctx, s.ID)
	require.NoError(t, err)

	retries := logs.FilterMessage("Gateway call failed, retrying").All()
	require.Len(t, retries, 2)
	assert.Equal(t, "get session", retries[0].ContextMap()["op"])
	assert.EqualValues(t, 1, retries[0].ContextMap()["attempt"])
}
