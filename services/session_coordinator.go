package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"swipebite_server/logging"
	"swipebite_server/metrics"
	"swipebite_server/models"
	"swipebite_server/notify"
)

// maxCodeDraws bounds how many codes CreateSession tries when the gateway
// reports a collision.
const maxCodeDraws = 5

// SessionDefaults are applied when CreateSession is called with zero values.
type SessionDefaults struct {
	MaxParticipants    int
	RequiresAllToMatch bool
}

// SessionCoordinator owns one user's view of their current session: the
// lifecycle calls, their swipes, match evaluation and their recipe deck.
//
// The local snapshot is a read cache kept fresh by the gateway
// subscription. The mutex guards only local state and is never held
// across a gateway call, since change notifications may be delivered
// synchronously from inside one.
type SessionCoordinator struct {
	gateway  Gateway
	codes    *CodeGenerator
	deck     *Deck
	defaults SessionDefaults
	logger   *zap.Logger

	mu      sync.Mutex
	user    models.User
	session *models.SwipeSession
	sub     notify.Subscription
	loading int
}

// NewSessionCoordinator creates a coordinator for user.
func NewSessionCoordinator(user models.User, gateway Gateway, deck *Deck, codes *CodeGenerator, defaults SessionDefaults, logger *zap.Logger) *SessionCoordinator {
	return &SessionCoordinator{
		gateway:  gateway,
		codes:    codes,
		deck:     deck,
		defaults: defaults,
		logger:   logger,
		user:     user,
	}
}

// User returns the profile the coordinator acts as.
func (c *SessionCoordinator) User() models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// SetUser refreshes the profile used for future joins. The id must not change.
func (c *SessionCoordinator) SetUser(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.ID == c.user.ID {
		c.user = u
	}
}

func (c *SessionCoordinator) begin() func() {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.loading--
		c.mu.Unlock()
	}
}

// IsLoading reports whether an operation is waiting on the gateway.
func (c *SessionCoordinator) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// Session returns a copy of the local snapshot, or nil when not in a session.
func (c *SessionCoordinator) Session() *models.SwipeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

func (c *SessionCoordinator) current() (*models.SwipeSession, models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, c.user, models.ErrNotInSession
	}
	return c.session.Clone(), c.user, nil
}

// Stats aggregates the local snapshot.
func (c *SessionCoordinator) Stats() (models.SessionStats, error) {
	s, _, err := c.current()
	if err != nil {
		return models.SessionStats{}, err
	}
	return s.Stats(), nil
}

// CurrentRecipe returns the top card of the user's deck.
func (c *SessionCoordinator) CurrentRecipe() (models.Recipe, error) {
	return c.deck.Current()
}

// NextRecipe skips the current card without recording a swipe.
func (c *SessionCoordinator) NextRecipe() (models.Recipe, error) {
	return c.deck.Advance()
}

// CreateSession stores a new waiting session hosted by the user and
// returns its invite code. A zero maxParticipants or nil requiresAllToMatch
// takes the configured default. The previous session, if any, is left once
// the new one is stored.
func (c *SessionCoordinator) CreateSession(ctx context.Context, maxParticipants int, requiresAllToMatch *bool) (string, error) {
	done := c.begin()
	defer done()

	if maxParticipants == 0 {
		maxParticipants = c.defaults.MaxParticipants
	}
	requiresAll := c.defaults.RequiresAllToMatch
	if requiresAllToMatch != nil {
		requiresAll = *requiresAllToMatch
	}
	if maxParticipants < models.MinMaxParticipants || maxParticipants > models.MaxMaxParticipants {
		return "", fmt.Errorf("%w: maxParticipants must be between %d and %d",
			models.ErrInvalidSessionConfig, models.MinMaxParticipants, models.MaxMaxParticipants)
	}

	user := c.User()
	var s *models.SwipeSession
	var err error
	for range maxCodeDraws {
		s, err = c.gateway.CreateSession(ctx, user, c.codes.Generate(), maxParticipants, requiresAll)
		if !errors.Is(err, models.ErrSessionCodeTaken) {
			break
		}
		c.logger.Debug("Session code collision, drawing another")
	}
	if err != nil {
		c.logger.Error("Failed to create session", zap.Error(err))
		return "", &models.SessionCreationError{Err: err}
	}

	if prev := c.Session(); prev != nil {
		if err := c.leaveCurrent(ctx); err != nil {
			c.logger.Warn("Failed to leave previous session", zap.String("session_id", prev.ID), zap.Error(err))
		}
	}

	if err := c.attach(ctx, s); err != nil {
		if aerr := c.gateway.SetSessionStatus(ctx, s.ID, models.SessionAbandoned); aerr != nil {
			c.logger.Warn("Failed to abandon untracked session",
				append(logging.Session(s.ID, user.ID), zap.Error(aerr))...)
		}
		return "", &models.SessionCreationError{Err: err}
	}
	metrics.SessionsCreated.Inc()
	c.logger.Info("Session created", append(logging.Session(s.ID, user.ID), zap.String("code", s.SessionCode))...)
	return s.SessionCode, nil
}

// JoinSession adds the user to the session with the given code and returns
// the fresh snapshot. Joining a session the user is already active in is a
// no-op. The previous session, if any, is left once the join succeeds.
func (c *SessionCoordinator) JoinSession(ctx context.Context, code string) (*models.SwipeSession, error) {
	done := c.begin()
	defer done()

	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, models.ErrInvalidSessionCode
	}

	user := c.User()
	s, err := c.gateway.GetSessionByCode(ctx, code)
	if err != nil {
		metrics.Joins.WithLabelValues(joinResult(err)).Inc()
		return nil, err
	}

	existing := s.Participant(user.ID)
	switch {
	case s.Status.Terminal():
		err = models.ErrSessionClosed
	case existing != nil && existing.Status == models.ParticipantRemoved:
		err = models.ErrRemovedFromSession
	case (existing == nil || !existing.IsActive()) && s.ActiveCount() >= s.MaxParticipants:
		err = models.ErrSessionFull
	}
	if err == nil {
		err = c.gateway.AddParticipant(ctx, s.ID, user)
	}
	if err != nil {
		metrics.Joins.WithLabelValues(joinResult(err)).Inc()
		c.logger.Info("Join rejected", append(logging.Session(s.ID, user.ID), zap.Error(err))...)
		return nil, err
	}

	if prev := c.Session(); prev != nil && prev.ID != s.ID {
		if err := c.leaveCurrent(ctx); err != nil {
			c.logger.Warn("Failed to leave previous session", zap.String("session_id", prev.ID), zap.Error(err))
		}
	}

	fresh, err := c.gateway.GetSession(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if cur := c.Session(); cur == nil || cur.ID != fresh.ID {
		if err := c.attach(ctx, fresh); err != nil {
			return nil, err
		}
	} else {
		c.store(fresh)
	}

	if existing != nil {
		metrics.Joins.WithLabelValues(metrics.JoinRejoined).Inc()
	} else {
		metrics.Joins.WithLabelValues(metrics.JoinJoined).Inc()
	}
	c.logger.Info("Joined session", logging.Session(fresh.ID, user.ID)...)
	return fresh.Clone(), nil
}

func joinResult(err error) string {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return metrics.JoinNotFound
	case errors.Is(err, models.ErrSessionFull):
		return metrics.JoinFull
	case errors.Is(err, models.ErrSessionClosed):
		return metrics.JoinClosed
	case errors.Is(err, models.ErrRemovedFromSession):
		return metrics.JoinRemoved
	}
	return metrics.JoinError
}

// StartSession moves the session to active. Host only, and only with at
// least two active participants. Starting an active session is a no-op.
func (c *SessionCoordinator) StartSession(ctx context.Context) error {
	done := c.begin()
	defer done()

	local, user, err := c.current()
	if err != nil {
		return err
	}
	s, err := c.gateway.GetSession(ctx, local.ID)
	if err != nil {
		return err
	}

	switch {
	case !s.IsHost(user.ID):
		return models.ErrUnauthorized
	case s.Status.Terminal():
		return models.ErrSessionClosed
	case s.IsActive():
		c.store(s)
		return nil
	case s.ActiveCount() < models.MinParticipantsToStart:
		return models.ErrNotEnoughParticipants
	}

	if _, err := c.gateway.SetSessionActive(ctx, s.ID, user.ID); err != nil {
		return err
	}
	c.logger.Info("Session started", logging.Session(s.ID, user.ID)...)
	_, err = c.refresh(ctx, s.ID)
	return err
}

// EndSession completes the session. Host only; ending a completed session
// is a no-op.
func (c *SessionCoordinator) EndSession(ctx context.Context) error {
	done := c.begin()
	defer done()

	local, user, err := c.current()
	if err != nil {
		return err
	}
	s, err := c.gateway.GetSession(ctx, local.ID)
	if err != nil {
		return err
	}

	switch {
	case !s.IsHost(user.ID):
		return models.ErrUnauthorized
	case s.Status == models.SessionCompleted:
		c.store(s)
		return nil
	case s.Status.Terminal():
		return models.ErrSessionClosed
	}

	if err := c.gateway.SetSessionStatus(ctx, s.ID, models.SessionCompleted); err != nil {
		return err
	}
	c.logger.Info("Session ended", logging.Session(s.ID, user.ID)...)
	_, err = c.refresh(ctx, s.ID)
	return err
}

// LeaveSession marks the user as left and drops local state. Swipe history
// stays in the session. When the host leaves, the earliest-joined remaining
// participant becomes host; when nobody remains the session is abandoned.
func (c *SessionCoordinator) LeaveSession(ctx context.Context) error {
	done := c.begin()
	defer done()

	if _, _, err := c.current(); err != nil {
		return err
	}
	return c.leaveCurrent(ctx)
}

func (c *SessionCoordinator) leaveCurrent(ctx context.Context) error {
	local, user, err := c.current()
	if errors.Is(err, models.ErrNotInSession) {
		return nil
	}

	s, err := c.gateway.GetSession(ctx, local.ID)
	if errors.Is(err, models.ErrSessionNotFound) {
		c.detach(local.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if p := s.Participant(user.ID); p != nil && p.IsActive() {
		if err := c.gateway.SetParticipantStatus(ctx, s.ID, user.ID, models.ParticipantLeft); err != nil {
			return err
		}
		if s.IsHost(user.ID) && !s.Status.Terminal() {
			if err := c.handOff(ctx, s, user.ID); err != nil {
				return err
			}
		}
	}

	c.detach(s.ID)
	c.logger.Info("Left session", logging.Session(s.ID, user.ID)...)
	return nil
}

// handOff applies the host departure policy to the pre-leave snapshot s.
func (c *SessionCoordinator) handOff(ctx context.Context, s *models.SwipeSession, leavingHostID string) error {
	for _, p := range s.ActiveParticipants() {
		if p.User.ID == leavingHostID {
			continue
		}
		c.logger.Info("Host left, promoting participant",
			append(logging.Session(s.ID, leavingHostID), zap.String("new_host_id", p.User.ID))...)
		return c.gateway.TransferHost(ctx, s.ID, p.User.ID)
	}
	c.logger.Info("Last participant left, abandoning session", logging.Session(s.ID, leavingHostID)...)
	return c.gateway.SetSessionStatus(ctx, s.ID, models.SessionAbandoned)
}

// RemoveParticipant marks another participant as removed. Host only.
func (c *SessionCoordinator) RemoveParticipant(ctx context.Context, participantID string) error {
	done := c.begin()
	defer done()

	local, user, err := c.current()
	if err != nil {
		return err
	}
	s, err := c.gateway.GetSession(ctx, local.ID)
	if err != nil {
		return err
	}
	if !s.IsHost(user.ID) {
		return models.ErrUnauthorized
	}

	target := s.ParticipantByID(participantID)
	switch {
	case target == nil:
		return models.ErrParticipantNotFound
	case target.User.ID == user.ID:
		return models.ErrInvalidParticipant
	case target.Status == models.ParticipantRemoved:
		c.store(s)
		return nil
	}

	if err := c.gateway.SetParticipantStatus(ctx, s.ID, target.User.ID, models.ParticipantRemoved); err != nil {
		return err
	}
	c.logger.Info("Participant removed",
		append(logging.Session(s.ID, user.ID), zap.String("removed_user_id", target.User.ID))...)
	_, err = c.refresh(ctx, s.ID)
	return err
}

// SwipeRight likes recipeID and reports whether it became a match.
func (c *SessionCoordinator) SwipeRight(ctx context.Context, recipeID string) (bool, error) {
	return c.RecordSwipe(ctx, recipeID, true)
}

// SwipeLeft dislikes recipeID. Dislikes never produce a match.
func (c *SessionCoordinator) SwipeLeft(ctx context.Context, recipeID string) error {
	_, err := c.RecordSwipe(ctx, recipeID, false)
	return err
}

// RecordSwipe stores the swipe and, for likes, evaluates the match rule
// against a fresh snapshot. The deck only moves once the swipe is stored.
func (c *SessionCoordinator) RecordSwipe(ctx context.Context, recipeID string, isLike bool) (bool, error) {
	done := c.begin()
	defer done()

	local, user, err := c.current()
	if err != nil {
		return false, err
	}
	if _, err := c.deck.Catalog().Get(recipeID); err != nil {
		return false, err
	}

	// Session and roster state are checked by the store; the local copy
	// may lag behind the bus.
	if err := c.gateway.RecordSwipe(ctx, local.ID, user.ID, recipeID, isLike); err != nil {
		c.logger.Warn("Failed to record swipe",
			append(logging.Session(local.ID, user.ID), zap.String("recipe_id", recipeID), zap.Error(err))...)
		var perr *models.PersistenceError
		if !errors.As(err, &perr) {
			if _, rerr := c.refresh(ctx, local.ID); rerr != nil {
				c.logger.Debug("Failed to refresh after rejected swipe", zap.Error(rerr))
			}
		}
		return false, err
	}
	c.deck.AdvancePast(recipeID)
	if isLike {
		metrics.Swipes.WithLabelValues(models.SwipeActionLike).Inc()
	} else {
		metrics.Swipes.WithLabelValues(models.SwipeActionDislike).Inc()
		return false, nil
	}

	fresh, err := c.refresh(ctx, local.ID)
	if err != nil {
		return false, err
	}
	if !IsMatch(fresh, recipeID) || fresh.HasMatch(recipeID) {
		return false, nil
	}

	added, err := c.gateway.AddMatch(ctx, local.ID, recipeID)
	if err != nil {
		return false, err
	}
	if added {
		metrics.Matches.Inc()
		c.logger.Info("Recipe matched",
			append(logging.Session(local.ID, user.ID), zap.String("recipe_id", recipeID))...)
		if _, err := c.refresh(ctx, local.ID); err != nil {
			c.logger.Warn("Failed to refresh after match", zap.Error(err))
		}
	}
	return added, nil
}

// Close drops the subscription and local state without leaving the session.
func (c *SessionCoordinator) Close() {
	c.mu.Lock()
	sub := c.sub
	c.session = nil
	c.sub = nil
	c.mu.Unlock()
	c.unsubscribe(sub)
}

// attach makes s the current session and subscribes to its changes.
func (c *SessionCoordinator) attach(ctx context.Context, s *models.SwipeSession) error {
	c.mu.Lock()
	prev := c.sub
	c.session = s.Clone()
	c.sub = nil
	c.mu.Unlock()
	c.unsubscribe(prev)
	c.deck.Reset()

	sub, err := c.gateway.Subscribe(ctx, s.ID, func(update *models.SwipeSession) {
		c.onChange(s.ID, update)
	})
	if err != nil {
		c.detach(s.ID)
		return err
	}

	c.mu.Lock()
	if c.session == nil || c.session.ID != s.ID {
		// Left again before the subscription was in place.
		c.mu.Unlock()
		c.unsubscribe(sub)
		return nil
	}
	c.sub = sub
	c.mu.Unlock()
	return nil
}

// detach clears local state if sessionID is still current.
func (c *SessionCoordinator) detach(sessionID string) {
	c.mu.Lock()
	if c.session == nil || c.session.ID != sessionID {
		c.mu.Unlock()
		return
	}
	sub := c.sub
	c.session = nil
	c.sub = nil
	c.mu.Unlock()

	c.unsubscribe(sub)
	c.deck.Reset()
}

func (c *SessionCoordinator) unsubscribe(sub notify.Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
}

func (c *SessionCoordinator) onChange(sessionID string, update *models.SwipeSession) {
	c.mu.Lock()
	if c.session == nil || c.session.ID != sessionID {
		c.mu.Unlock()
		return
	}
	if p := update.Participant(c.user.ID); p != nil && p.Status == models.ParticipantRemoved {
		c.mu.Unlock()
		c.logger.Info("Removed from session by host", zap.String("session_id", sessionID))
		c.detach(sessionID)
		return
	}
	c.session = update.Clone()
	c.mu.Unlock()
}

func (c *SessionCoordinator) store(s *models.SwipeSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.ID == s.ID {
		c.session = s.Clone()
	}
}

func (c *SessionCoordinator) refresh(ctx context.Context, sessionID string) (*models.SwipeSession, error) {
	s, err := c.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.store(s)
	return s, nil
}
