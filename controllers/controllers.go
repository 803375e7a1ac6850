package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"swipebite_server/models"
	"swipebite_server/services"
)

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to the SwipeBite API."})
}

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes {"error": msg}.
func WriteErrorResponse(w http.ResponseWriter, status int, msg string) {
	WriteJSONResponse(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var exhausted *models.RetryExhaustedError
	var creation *models.SessionCreationError
	var persistence *models.PersistenceError

	switch {
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &creation), errors.As(err, &persistence):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrParticipantNotFound),
		errors.Is(err, models.ErrRecipeNotFound),
		errors.Is(err, models.ErrNoMoreRecipes):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrRemovedFromSession):
		return http.StatusForbidden
	case errors.Is(err, models.ErrSessionFull),
		errors.Is(err, models.ErrNotInSession),
		errors.Is(err, models.ErrSessionNotStarted),
		errors.Is(err, models.ErrSessionClosed),
		errors.Is(err, models.ErrDuplicateSwipe),
		errors.Is(err, models.ErrNotEnoughParticipants):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidSessionCode),
		errors.Is(err, models.ErrInvalidSessionConfig),
		errors.Is(err, models.ErrInvalidParticipant),
		errors.Is(err, services.ErrInvalidAvatarKey),
		errors.Is(err, services.ErrInvalidFileName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError answers with the status for err. Infrastructure
// failures get a generic message and are logged.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		logger.Error("Storage unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		WriteErrorResponse(w, status, "storage is temporarily unavailable, please retry")
	case http.StatusBadGateway:
		logger.Error("Storage call failed", zap.String("path", r.URL.Path), zap.Error(err))
		WriteErrorResponse(w, status, "could not reach storage, please retry")
	case http.StatusInternalServerError:
		logger.Error("Unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		WriteErrorResponse(w, status, "internal server error")
	default:
		WriteErrorResponse(w, status, err.Error())
	}
}
