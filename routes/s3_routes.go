package routes

import (
	"swipebite_server/controllers"
	"swipebite_server/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegisterS3Routes sets up avatar upload routes under /api/uploads
func RegisterS3Routes(r *mux.Router, avatars *services.AvatarService, auth mux.MiddlewareFunc, logger *zap.Logger) {
	controller := controllers.NewUploadController(avatars, logger)

	uploadRouter := r.PathPrefix("/api/uploads").Subrouter()
	uploadRouter.Use(auth)
	uploadRouter.HandleFunc("/avatar", controller.GeneratePresignedURL).Methods("POST")
	uploadRouter.HandleFunc("/avatar/read", controller.GetPresignedReadURL).Methods("POST")
}
