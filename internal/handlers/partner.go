package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"swipe-match-backend/internal/middleware"
	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PartnerHandler handles pairing and matching HTTP requests
type PartnerHandler struct {
	pairingService *services.PairingService
	matchService   *services.MatchService
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(pairingService *services.PairingService, matchService *services.MatchService) *PartnerHandler {
	return &PartnerHandler{
		pairingService: pairingService,
		matchService:   matchService,
	}
}

// SendRequestBody represents the request body for a partner request
type SendRequestBody struct {
	PartnerCode string `json:"partner_code"`
}

// ViewedRequest represents the request body for skipping a card
type ViewedRequest struct {
	CardID string `json:"card_id"`
}

// List handles GET /api/v1/partners
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	partners, err := h.pairingService.ListPairings(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list partners")
		respondServiceError(w, err)
		return
	}
	if partners == nil {
		partners = []*models.Partner{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"partners": partners})
}

// SendRequest handles POST /api/v1/partners
func (h *PartnerHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.PartnerCode) == "" {
		respondError(w, "Please enter a partner code.", http.StatusBadRequest)
		return
	}

	partner, err := h.pairingService.SendRequest(ctx, userID, req.PartnerCode)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("partner_code", req.PartnerCode).
			Msg("Failed to send partner request")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, partner)
}

// Accept handles POST /api/v1/partners/{partner_id}/accept
func (h *PartnerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	partner, err := h.pairingService.Accept(ctx, userID, partnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to accept partner")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, partner)
}

// Reject handles POST /api/v1/partners/{partner_id}/reject
func (h *PartnerHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	partner, err := h.pairingService.Reject(ctx, userID, partnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to reject partner")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, partner)
}

// Remove handles DELETE /api/v1/partners/{partner_id}
func (h *PartnerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	if err := h.pairingService.RemoveRejection(ctx, userID, partnerID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to remove pairing")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Matches handles GET /api/v1/partners/{partner_id}/matches
func (h *PartnerHandler) Matches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	matches, err := h.matchService.Matches(ctx, userID, partnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to compute matches")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// Deck handles GET /api/v1/partners/{partner_id}/deck
func (h *PartnerHandler) Deck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	deck, err := h.matchService.Deck(ctx, userID, partnerID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to build deck")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cards": deck})
}

// MarkViewed handles POST /api/v1/partners/{partner_id}/viewed
func (h *PartnerHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partner_id")

	var req ViewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.matchService.MarkViewed(ctx, userID, partnerID, req.CardID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to mark card viewed")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /api/v1/admin/reconcile
func (h *PartnerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.pairingService.Reconcile(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to reconcile pairings")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
