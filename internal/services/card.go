package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

const catalogueKey = "catalogue"

const defaultImageURL = "https://images.unsplash.com/photo-1516589178581-6cd7833ae3b2?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3"

var defaultImages = map[models.Category]string{
	models.CategoryRomantic:    defaultImageURL,
	models.CategoryFantasies:   defaultImageURL,
	models.CategoryRelaxation:  defaultImageURL,
	models.CategoryFun:         defaultImageURL,
	models.CategoryExploration: defaultImageURL,
	models.CategoryNew:         defaultImageURL,
}

// starterCards seed an empty catalogue
var starterCards = []models.Card{
	{
		ID:          "massagem-sensual",
		Title:       "Massagem Sensual",
		Description: "A slow massage with aromatic oils that turns into something more intimate.",
		Category:    models.CategoryRelaxation,
		Image:       "https://images.unsplash.com/photo-1544161515-4ab6ce6db874?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
	},
	{
		ID:          "jantar-romantico",
		Title:       "Jantar Romântico",
		Description: "A candlelit dinner followed by a night of exploring new wishes together.",
		Category:    models.CategoryRomantic,
		Image:       "https://images.unsplash.com/photo-1596394516093-501ba68a0ba6?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
	},
	{
		ID:          "danca-ventre",
		Title:       "Dança do Ventre",
		Description: "A sensual, enveloping dance that wakes up the senses.",
		Category:    models.CategoryFantasies,
		Image:       "https://images.unsplash.com/photo-1545959570-a94084071b5d?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
	},
}

// DefaultImage returns the fallback image for a category
func DefaultImage(category models.Category) string {
	if url, ok := defaultImages[category]; ok {
		return url
	}
	return defaultImages[models.CategoryNew]
}

// CardInput is the editable part of a card
type CardInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	Image       string          `json:"image"`
}

// Validate checks that every field is present and the category is known
func (in *CardInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(in.Image) == "" {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	return nil
}

// CardService manages the shared card catalogue
type CardService struct {
	store repository.Store
	cache *expirable.LRU[string, []*models.Card]
}

// NewCardService creates a new card service; the catalogue listing is cached for ttl
func NewCardService(store repository.Store, ttl time.Duration) *CardService {
	return &CardService{
		store: store,
		cache: expirable.NewLRU[string, []*models.Card](1, nil, ttl),
	}
}

// List returns the catalogue, seeding the starter cards when it is empty
func (s *CardService) List(ctx context.Context) ([]*models.Card, error) {
	if cards, ok := s.cache.Get(catalogueKey); ok {
		return cards, nil
	}

	cards, err := s.store.Cards().List(ctx)
	if err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	if len(cards) == 0 {
		if cards, err = s.SeedDefaults(ctx); err != nil {
			return nil, err
		}
	}

	s.cache.Add(catalogueKey, cards)
	return cards, nil
}

// Get returns one card
func (s *CardService) Get(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.store.Cards().Get(ctx, id)
	if err != nil {
		return nil, remote(ErrCardNotFound, err)
	}
	return card, nil
}

// Create adds a new card with a generated id
func (s *CardService) Create(ctx context.Context, in CardInput) (*models.Card, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	card := &models.Card{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Image:       in.Image,
	}
	if err := s.store.Cards().Create(ctx, card); err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	s.cache.Purge()

	log.Info().Str("card_id", card.ID).Str("title", card.Title).Msg("Card created")
	return card, nil
}

// Update replaces the editable fields of a card
func (s *CardService) Update(ctx context.Context, id string, in CardInput) (*models.Card, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	card := &models.Card{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Image:       in.Image,
	}
	if err := s.store.Cards().Update(ctx, card); err != nil {
		return nil, remote(ErrCardNotFound, err)
	}
	s.cache.Purge()

	log.Info().Str("card_id", id).Msg("Card updated")
	return card, nil
}

// Delete removes a card
func (s *CardService) Delete(ctx context.Context, id string) error {
	if err := s.store.Cards().Delete(ctx, id); err != nil {
		return remote(ErrCardNotFound, err)
	}
	s.cache.Purge()

	log.Info().Str("card_id", id).Msg("Card deleted")
	return nil
}

// SeedDefaults stores the starter cards and returns the resulting catalogue
func (s *CardService) SeedDefaults(ctx context.Context) ([]*models.Card, error) {
	for i := range starterCards {
		card := starterCards[i]
		err := s.store.Cards().Create(ctx, &card)
		if errors.Is(err, repository.ErrConflict) {
			// seeded concurrently
			continue
		}
		if err != nil {
			return nil, remote(ErrRemoteFailure, fmt.Errorf("seed %s: %w", card.ID, err))
		}
	}
	s.cache.Purge()

	log.Info().Int("count", len(starterCards)).Msg("Starter cards created")

	cards, err := s.store.Cards().List(ctx)
	if err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	return cards, nil
}

// Reset clears every pairing, preference and card, then reseeds the starter cards
func (s *CardService) Reset(ctx context.Context) ([]*models.Card, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	s.cache.Purge()

	log.Warn().Msg("All application data cleared")
	return s.SeedDefaults(ctx)
}
