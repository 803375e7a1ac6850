package routes

import (
	"net/http"

	"swipebite_server/controllers"
	"swipebite_server/middleware"
	"swipebite_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterSessionRoutes sets up routes for swipe sessions under /api/sessions.
// Every route requires a bearer token; joins are also rate limited.
func RegisterSessionRoutes(r *mux.Router, registry *services.CoordinatorRegistry, auth mux.MiddlewareFunc, joinLimiter *middleware.RateLimiter, logger *zap.Logger) {
	controller := controllers.NewSessionController(registry, logger)

	sessionRouter := r.PathPrefix("/api/sessions").Subrouter()
	sessionRouter.Use(auth)

	sessionRouter.HandleFunc("", controller.CreateSession).Methods("POST")
	sessionRouter.Handle("/join", joinLimiter.Middleware(http.HandlerFunc(controller.JoinSession))).Methods("POST")
	sessionRouter.HandleFunc("/current", controller.GetCurrentSession).Methods("GET")
	sessionRouter.HandleFunc("/start", controller.StartSession).Methods("POST")
	sessionRouter.HandleFunc("/end", controller.EndSession).Methods("POST")
	sessionRouter.HandleFunc("/leave", controller.LeaveSession).Methods("POST")
	sessionRouter.HandleFunc("/participants/{participantId}", controller.RemoveParticipant).Methods("DELETE")
	sessionRouter.HandleFunc("/swipe", controller.Swipe).Methods("POST")
	sessionRouter.HandleFunc("/stats", controller.GetStats).Methods("GET")
	sessionRouter.HandleFunc("/recipe", controller.GetCurrentRecipe).Methods("GET")
	sessionRouter.HandleFunc("/recipe/skip", controller.SkipRecipe).Methods("POST")
}
