package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swipebite_server/middleware"
	"swipebite_server/models"
	"swipebite_server/notify"
	"swipebite_server/services"
	"swipebite_server/store"
	"swipebite_server/utils"
)

var secret = []byte("test-secret")

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	catalog, err := services.LoadRecipeCatalog()
	require.NoError(t, err)
	gateway := store.NewGateway(store.NewMemoryBackend(), notify.NewLocalBus(), zap.NewNop())
	registry := services.NewCoordinatorRegistry(gateway, catalog, services.NewCodeGenerator(),
		services.SessionDefaults{MaxParticipants: 4, RequiresAllToMatch: true}, zap.NewNop())
	t.Cleanup(registry.Close)

	r := mux.NewRouter()
	RegisterRoutes(r, "/metrics")
	RegisterRecipeRoutes(r, catalog, zap.NewNop())
	RegisterSessionRoutes(r, registry, middleware.Auth(secret, zap.NewNop()),
		middleware.NewRateLimiter(60, 5, zap.NewNop()), zap.NewNop())
	return r
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	r := newRouter(t)

	for _, path := range []string{"/health", "/welcome", "/privacy-policy", "/metrics", "/api/recipes", "/api/recipes/716429"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRoutes_SessionsRequireToken(t *testing.T) {
	r := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := utils.GenerateJWT(secret, models.User{ID: "u1", Name: "Alice", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
