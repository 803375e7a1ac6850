package services

import (
	"sync"

	"go.uber.org/zap"

	"swipebite_server/metrics"
	"swipebite_server/models"
)

// CoordinatorRegistry owns one SessionCoordinator per signed-in user. It is
// built once at startup and closed on shutdown.
type CoordinatorRegistry struct {
	gateway  Gateway
	catalog  *RecipeService
	codes    *CodeGenerator
	defaults SessionDefaults
	logger   *zap.Logger

	mu           sync.Mutex
	coordinators map[string]*SessionCoordinator
}

// NewCoordinatorRegistry creates an empty registry.
func NewCoordinatorRegistry(gateway Gateway, catalog *RecipeService, codes *CodeGenerator, defaults SessionDefaults, logger *zap.Logger) *CoordinatorRegistry {
	return &CoordinatorRegistry{
		gateway:      gateway,
		catalog:      catalog,
		codes:        codes,
		defaults:     defaults,
		logger:       logger,
		coordinators: make(map[string]*SessionCoordinator),
	}
}

// For returns the user's coordinator, creating it on first use. The stored
// profile is refreshed from user on every call.
func (r *CoordinatorRegistry) For(user models.User) *SessionCoordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.coordinators[user.ID]; ok {
		c.SetUser(user)
		return c
	}
	c := NewSessionCoordinator(user, r.gateway, NewDeck(r.catalog), r.codes, r.defaults, r.logger)
	r.coordinators[user.ID] = c
	metrics.ActiveCoordinators.Set(float64(len(r.coordinators)))
	return c
}

// Lookup returns the coordinator for userID if one exists.
func (r *CoordinatorRegistry) Lookup(userID string) (*SessionCoordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coordinators[userID]
	return c, ok
}

// Len returns the number of coordinators held.
func (r *CoordinatorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coordinators)
}

// Close drops every coordinator's subscription. Sessions are not left.
func (r *CoordinatorRegistry) Close() {
	r.mu.Lock()
	coordinators := r.coordinators
	r.coordinators = make(map[string]*SessionCoordinator)
	r.mu.Unlock()

	for _, c := range coordinators {
		c.Close()
	}
	metrics.ActiveCoordinators.Set(0)
	r.logger.Info("Closed session coordinators", zap.Int("count", len(coordinators)))
}
