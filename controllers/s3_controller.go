package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"swipebite_server/middleware"
	"swipebite_server/services"
)

// UploadController hands out presigned avatar URLs
type UploadController struct {
	Avatars *services.AvatarService
	logger  *zap.Logger
}

func NewUploadController(avatars *services.AvatarService, logger *zap.Logger) *UploadController {
	return &UploadController{Avatars: avatars, logger: logger}
}

// GeneratePresignedURL generates a presigned URL for avatar uploads
func (uc *UploadController) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		WriteErrorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.FileName == "" || payload.FileType == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	url, key, err := uc.Avatars.GenerateUploadURL(r.Context(), user.ID, payload.FileName, payload.FileType)
	if err != nil {
		if StatusFor(err) == http.StatusBadRequest {
			WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		uc.logger.Error("Error generating pre-signed URL", zap.String("user_id", user.ID), zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate pre-signed URL")
		return
	}

	uc.logger.Debug("Generated avatar upload URL", zap.String("user_id", user.ID), zap.String("key", key))
	WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url, "key": key})
}

// GetPresignedReadURL generates a presigned URL for reading an avatar
func (uc *UploadController) GetPresignedReadURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(r, &payload); err != nil || payload.Key == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	url, err := uc.Avatars.GenerateReadURL(r.Context(), payload.Key)
	if err != nil {
		if StatusFor(err) == http.StatusBadRequest {
			WriteErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		uc.logger.Error("Error generating read URL", zap.Error(err))
		WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate read pre-signed URL")
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}
