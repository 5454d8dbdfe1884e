package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"swipe-match-backend/internal/middleware"
	"swipe-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

// ImageHandler handles image upload HTTP requests
type ImageHandler struct {
	imageService *services.ImageService
}

// NewImageHandler creates a new image handler
func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
	}
}

// Upload handles POST /api/v1/images
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+formOverhead)
	if err := r.ParseMultipartForm(services.MaxImageSize + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(w, services.ErrImageTooLarge)
			return
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "Please select an image.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	url, err := h.imageService.Upload(ctx, folder, header.Header.Get("Content-Type"), file)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("filename", header.Filename).Msg("Failed to upload image")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Presign handles POST /api/v1/images/presign
func (h *ImageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.imageService.PresignUpload(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to presign upload")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
