package handlers

import (
	"encoding/json"
	"net/http"

	"swipe-match-backend/internal/identity"
	"swipe-match-backend/internal/middleware"
	"swipe-match-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles sign-in and profile HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SignInRequest carries either a provider ID token or the code of a failed client-side sign-in
type SignInRequest struct {
	IDToken       string `json:"id_token"`
	ProviderError string `json:"provider_error"`
}

// AdminSessionRequest carries the admin password
type AdminSessionRequest struct {
	Password string `json:"password"`
}

// SignIn handles POST /api/v1/auth/signin
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ProviderError != "" {
		log.Info().Str("code", req.ProviderError).Msg("Client sign-in failed")
		respondError(w, identity.Message(req.ProviderError), http.StatusUnauthorized)
		return
	}

	session, err := h.userService.SignIn(ctx, req.IDToken)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign in")
		if message, statusCode := describe(err); statusCode == http.StatusUnauthorized {
			respondError(w, identity.ErrorMessage(err), statusCode)
		} else {
			respondError(w, message, statusCode)
		}
		return
	}

	log.Info().
		Str("user_id", session.User.ID).
		Msg("User signed in")

	respondJSON(w, http.StatusOK, session)
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userService.Me(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.UpdateProfile(ctx, userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// AdminSession handles POST /api/v1/admin/session
func (h *UserHandler) AdminSession(w http.ResponseWriter, r *http.Request) {
	var req AdminSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.userService.AdminToken(req.Password)
	if err != nil {
		log.Warn().Msg("Rejected admin sign-in")
		respondError(w, "Wrong password", http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}
