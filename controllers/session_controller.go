package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"swipebite_server/middleware"
	"swipebite_server/models"
	"swipebite_server/services"
)

// SessionController handles HTTP requests for the caller's swipe session
type SessionController struct {
	Registry *services.CoordinatorRegistry
	logger   *zap.Logger
}

// NewSessionController creates a new SessionController instance
func NewSessionController(registry *services.CoordinatorRegistry, logger *zap.Logger) *SessionController {
	return &SessionController{Registry: registry, logger: logger}
}

func (sc *SessionController) coordinator(w http.ResponseWriter, r *http.Request) (*services.SessionCoordinator, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return sc.Registry.For(user), true
}

// CreateSession handles POST /api/sessions
func (sc *SessionController) CreateSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}

	var payload struct {
		MaxParticipants    int   `json:"maxParticipants"`
		RequiresAllToMatch *bool `json:"requiresAllToMatch"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	code, err := c.CreateSession(r.Context(), payload.MaxParticipants, payload.RequiresAllToMatch)
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"sessionCode": code,
		"session":     c.Session(),
	})
}

// JoinSession handles POST /api/sessions/join
func (sc *SessionController) JoinSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}

	var payload struct {
		SessionCode string `json:"sessionCode"`
	}
	if err := decodeJSON(r, &payload); err != nil || payload.SessionCode == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "sessionCode is required")
		return
	}

	s, err := c.JoinSession(r.Context(), payload.SessionCode)
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"session": s})
}

// GetCurrentSession handles GET /api/sessions/current
func (sc *SessionController) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	s := c.Session()
	if s == nil {
		WriteErrorResponse(w, http.StatusNotFound, models.ErrNotInSession.Error())
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"session":   s,
		"isHost":    s.IsHost(c.User().ID),
		"isLoading": c.IsLoading(),
	})
}

// StartSession handles POST /api/sessions/start
func (sc *SessionController) StartSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	if err := c.StartSession(r.Context()); err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"session": c.Session()})
}

// EndSession handles POST /api/sessions/end
func (sc *SessionController) EndSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	if err := c.EndSession(r.Context()); err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"session": c.Session()})
}

// LeaveSession handles POST /api/sessions/leave
func (sc *SessionController) LeaveSession(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	if err := c.LeaveSession(r.Context()); err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"left": true})
}

// RemoveParticipant handles DELETE /api/sessions/participants/{participantId}
func (sc *SessionController) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	participantID := mux.Vars(r)["participantId"]
	if participantID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "participantId is required")
		return
	}
	if err := c.RemoveParticipant(r.Context(), participantID); err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{"session": c.Session()})
}

// Swipe handles POST /api/sessions/swipe
func (sc *SessionController) Swipe(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}

	var payload struct {
		RecipeID string `json:"recipeId"`
		Action   string `json:"action"`
	}
	if err := decodeJSON(r, &payload); err != nil || payload.RecipeID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "recipeId is required")
		return
	}

	var matched bool
	var err error
	switch payload.Action {
	case models.SwipeActionLike:
		matched, err = c.SwipeRight(r.Context(), payload.RecipeID)
	case models.SwipeActionDislike:
		err = c.SwipeLeft(r.Context(), payload.RecipeID)
	default:
		WriteErrorResponse(w, http.StatusBadRequest, "action must be like or dislike")
		return
	}
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}

	response := map[string]interface{}{"matched": matched}
	if stats, err := c.Stats(); err == nil {
		response["stats"] = stats
	}
	if next, err := c.CurrentRecipe(); err == nil {
		response["nextRecipe"] = next
	}
	WriteJSONResponse(w, http.StatusOK, response)
}

// GetStats handles GET /api/sessions/stats
func (sc *SessionController) GetStats(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	stats, err := c.Stats()
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, stats)
}

// GetCurrentRecipe handles GET /api/sessions/recipe
func (sc *SessionController) GetCurrentRecipe(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	recipe, err := c.CurrentRecipe()
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, recipe)
}

// SkipRecipe handles POST /api/sessions/recipe/skip
func (sc *SessionController) SkipRecipe(w http.ResponseWriter, r *http.Request) {
	c, ok := sc.coordinator(w, r)
	if !ok {
		return
	}
	recipe, err := c.NextRecipe()
	if err != nil {
		writeServiceError(w, sc.logger, r, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, recipe)
}
