package services

import (
	"context"
	"strings"

	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// ComputeMatches returns the catalogue cards present in both liked sets, in catalogue order
func ComputeMatches(mine, theirs []string, catalogue []*models.Card) []*models.Card {
	a := toSet(mine)
	b := toSet(theirs)

	matches := []*models.Card{}
	for _, card := range catalogue {
		_, inA := a[card.ID]
		_, inB := b[card.ID]
		if inA && inB {
			matches = append(matches, card)
		}
	}
	return matches
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// MatchService records card preferences and computes matches between partners
type MatchService struct {
	users     repository.UserStore
	partners  repository.PartnerStore
	pairing   *PairingService
	cards     *CardService
	publisher Publisher
	notifier  Notifier
}

// NewMatchService creates a new match service
func NewMatchService(
	users repository.UserStore,
	partners repository.PartnerStore,
	pairing *PairingService,
	cards *CardService,
	publisher Publisher,
	notifier Notifier,
) *MatchService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &MatchService{
		users:     users,
		partners:  partners,
		pairing:   pairing,
		cards:     cards,
		publisher: publisher,
		notifier:  notifier,
	}
}

// RecordLike adds cardID to userID's liked set. Liking twice is a no-op.
// Partners watching userID's likes are told, and a like that completes a
// match with an active partner is announced to both.
func (s *MatchService) RecordLike(ctx context.Context, userID, cardID string) error {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return ErrCardNotFound
	}
	if _, err := s.cards.Get(ctx, cardID); err != nil {
		return err
	}

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return remote(ErrUserNotFound, err)
	}
	if contains(me.LikedCards, cardID) {
		return nil
	}

	if err := s.users.AddLikedCard(ctx, userID, cardID); err != nil {
		return remote(ErrUserNotFound, err)
	}
	likesRecorded.Inc()

	s.publisher.Publish(LikesTopic(userID), Event{
		Type:   EventPartnerLiked,
		UserID: userID,
		CardID: cardID,
	})

	s.announceMatches(ctx, userID, cardID)
	return nil
}

// ToggleHighlight flips cardID in userID's highlighted set and reports the new state.
// Highlights never affect matching.
func (s *MatchService) ToggleHighlight(ctx context.Context, userID, cardID string) (bool, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return false, ErrCardNotFound
	}
	if _, err := s.cards.Get(ctx, cardID); err != nil {
		return false, err
	}

	highlighted, err := s.users.ToggleHighlight(ctx, userID, cardID)
	if err != nil {
		return false, remote(ErrUserNotFound, err)
	}
	return highlighted, nil
}

// Matches returns the current matches between userID and an accepted partner
func (s *MatchService) Matches(ctx context.Context, userID, partnerID string) ([]*models.Card, error) {
	if _, err := s.pairing.RequireAccepted(ctx, userID, partnerID); err != nil {
		return nil, err
	}

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, remote(ErrUserNotFound, err)
	}
	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		return nil, remote(ErrUserNotFound, err)
	}
	catalogue, err := s.cards.List(ctx)
	if err != nil {
		return nil, err
	}

	return ComputeMatches(me.LikedCards, partner.LikedCards, catalogue), nil
}

// MarkViewed records that userID skipped cardID within the pairing with partnerID
func (s *MatchService) MarkViewed(ctx context.Context, userID, partnerID, cardID string) error {
	if _, err := s.pairing.RequireAccepted(ctx, userID, partnerID); err != nil {
		return err
	}
	if _, err := s.cards.Get(ctx, cardID); err != nil {
		return err
	}
	if err := s.partners.AddViewed(ctx, userID, partnerID, cardID); err != nil {
		return remote(ErrRemoteFailure, err)
	}
	return nil
}

// Deck returns the cards userID has neither liked nor skipped within the pairing with partnerID
func (s *MatchService) Deck(ctx context.Context, userID, partnerID string) ([]*models.Card, error) {
	if _, err := s.pairing.RequireAccepted(ctx, userID, partnerID); err != nil {
		return nil, err
	}

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, remote(ErrUserNotFound, err)
	}
	viewed, err := s.partners.ListViewed(ctx, userID, partnerID)
	if err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	catalogue, err := s.cards.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := toSet(me.LikedCards)
	for _, id := range viewed {
		seen[id] = struct{}{}
	}

	deck := []*models.Card{}
	for _, card := range catalogue {
		if _, ok := seen[card.ID]; !ok {
			deck = append(deck, card)
		}
	}
	return deck, nil
}

// announceMatches tells both sides when a like completes a match with an active partner
func (s *MatchService) announceMatches(ctx context.Context, userID, cardID string) {
	partnerIDs, err := s.pairing.AcceptedPartnerIDs(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load partners for match check")
		return
	}

	for _, partnerID := range partnerIDs {
		partner, err := s.users.GetByID(ctx, partnerID)
		if err != nil {
			log.Warn().Err(err).Str("partner_id", partnerID).Msg("Failed to load partner for match check")
			continue
		}
		if !contains(partner.LikedCards, cardID) {
			continue
		}

		matchesFound.Inc()
		log.Info().
			Str("user_id", userID).
			Str("partner_id", partnerID).
			Str("card_id", cardID).
			Msg("Match found")

		for _, owner := range []string{userID, partnerID} {
			s.publisher.Publish(PartnersTopic(owner), Event{
				Type:   EventMatch,
				UserID: counterpart(owner, userID, partnerID),
				CardID: cardID,
			})
		}
		notifyUser(ctx, s.notifier, partner.PushToken, partner.ID, Notification{
			Title: "It's a match!",
			Body:  "You and your partner both liked the same card",
			Data:  map[string]string{"partner_id": userID, "card_id": cardID},
		})
	}
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
