package handlers

import (
	"encoding/json"
	"net/http"

	"swipe-match-backend/internal/middleware"
	"swipe-match-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CardHandler handles catalogue and swipe HTTP requests
type CardHandler struct {
	cardService  *services.CardService
	matchService *services.MatchService
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardService *services.CardService, matchService *services.MatchService) *CardHandler {
	return &CardHandler{
		cardService:  cardService,
		matchService: matchService,
	}
}

// List handles GET /api/v1/cards
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list cards")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// Like handles POST /api/v1/cards/{card_id}/like
func (h *CardHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	cardID := chi.URLParam(r, "card_id")

	if err := h.matchService.RecordLike(ctx, userID, cardID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("card_id", cardID).Msg("Failed to record like")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Highlight handles POST /api/v1/cards/{card_id}/highlight
func (h *CardHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	cardID := chi.URLParam(r, "card_id")

	highlighted, err := h.matchService.ToggleHighlight(ctx, userID, cardID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("card_id", cardID).Msg("Failed to toggle highlight")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"highlighted": highlighted})
}

// Create handles POST /api/v1/admin/cards
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CardInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := h.cardService.Create(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create card")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, card)
}

// Update handles PUT /api/v1/admin/cards/{card_id}
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "card_id")

	var req services.CardInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := h.cardService.Update(r.Context(), cardID, req)
	if err != nil {
		log.Error().Err(err).Str("card_id", cardID).Msg("Failed to update card")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, card)
}

// Delete handles DELETE /api/v1/admin/cards/{card_id}
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "card_id")

	if err := h.cardService.Delete(r.Context(), cardID); err != nil {
		log.Error().Err(err).Str("card_id", cardID).Msg("Failed to delete card")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reset handles POST /api/v1/admin/reset. Pairings, likes and cards are
// cleared and the starter cards are seeded again.
func (h *CardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.Reset(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to reset data")
		respondServiceError(w, err)
		return
	}

	log.Warn().Int("cards", len(cards)).Msg("All data cleared")
	respondJSON(w, http.StatusOK, map[string]any{"cards": cards})
}
