package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"swipe-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondServiceError converts a service error into a short user-facing message
func respondServiceError(w http.ResponseWriter, err error) {
	message, statusCode := describe(err)
	respondError(w, message, statusCode)
}

// describe maps the service error taxonomy to a message and status code.
// Specific errors are checked before the taxonomy roots they wrap.
func describe(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrCodeNotFound):
		return "Invalid partner code.", http.StatusNotFound
	case errors.Is(err, services.ErrPairingNotFound):
		return "Pairing not found.", http.StatusNotFound
	case errors.Is(err, services.ErrCardNotFound):
		return "Card not found.", http.StatusNotFound
	case errors.Is(err, services.ErrUserNotFound):
		return "User not found. Please sign in again.", http.StatusNotFound
	case errors.Is(err, services.ErrNotFound):
		return "Not found.", http.StatusNotFound

	case errors.Is(err, services.ErrSelfRequest):
		return "You cannot pair with your own code.", http.StatusBadRequest
	case errors.Is(err, services.ErrSelfReference):
		return "You cannot do that to yourself.", http.StatusBadRequest

	case errors.Is(err, services.ErrAlreadyPending):
		return "A request with this user is already pending.", http.StatusConflict
	case errors.Is(err, services.ErrAlreadyAccepted):
		return "You are already partners with this user.", http.StatusConflict
	case errors.Is(err, services.ErrAlreadyRejected):
		return "This request was rejected. Remove it before sending a new one.", http.StatusConflict
	case errors.Is(err, services.ErrNotPaired):
		return "You can only play with an accepted partner.", http.StatusConflict
	case errors.Is(err, services.ErrInvalidState):
		return "This action is not available for this pairing.", http.StatusConflict

	case errors.Is(err, services.ErrUnsupportedImage):
		return "Unsupported file type. Use JPEG, PNG, GIF or WEBP.", http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrImageTooLarge):
		return "The file is too large. The maximum size is 5MB.", http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrInvalidInput):
		return err.Error(), http.StatusBadRequest

	case errors.Is(err, services.ErrUnauthorized):
		return "Not authorized.", http.StatusUnauthorized

	case errors.Is(err, services.ErrRemoteFailure):
		return "Something went wrong. Please try again.", http.StatusBadGateway
	default:
		return "Something went wrong. Please try again.", http.StatusInternalServerError
	}
}
