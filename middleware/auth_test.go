package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"swipebite_server/models"
	"swipebite_server/utils"
)

var testSecret = []byte("test-secret")

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Write([]byte(u.ID + "|" + u.Name + "|" + u.Email + "|" + u.Avatar))
	})
}

func TestAuth_ExtractsIdentity(t *testing.T) {
	user := models.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Avatar: "avatars/u-1/a.png"}
	token, err := utils.GenerateJWT(testSecret, user, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(testSecret, zap.NewNop())(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1|Alice|alice@example.com|avatars/u-1/a.png", rec.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	valid, err := utils.GenerateJWT(testSecret, models.User{ID: "u-1", Name: "A", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateJWT(testSecret, models.User{ID: "u-1", Name: "A", Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := utils.GenerateJWT([]byte("other"), models.User{ID: "u-1", Name: "A", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "A", "email": "a@example.com", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u-1", "name": "A", "email": "a@example.com",
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic " + valid},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no sub", "Bearer " + noSub},
		{"other algorithm", "Bearer " + hs512},
		{"garbage", "Bearer not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(testSecret, zap.NewNop())(echoUser()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}
