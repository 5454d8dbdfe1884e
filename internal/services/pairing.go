package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// PairingService drives the lifecycle of mirrored pairing records.
// It is the only writer of pairing records.
type PairingService struct {
	partners  repository.PartnerStore
	users     repository.UserStore
	directory *Directory
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

// NewPairingService creates a new pairing service
func NewPairingService(
	partners repository.PartnerStore,
	users repository.UserStore,
	directory *Directory,
	publisher Publisher,
	notifier Notifier,
) *PairingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PairingService{
		partners:  partners,
		users:     users,
		directory: directory,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
	}
}

// SendRequest creates a pending pairing between fromID and the holder of toCode
func (s *PairingService) SendRequest(ctx context.Context, fromID, toCode string) (*models.Partner, error) {
	from, err := s.users.GetByID(ctx, fromID)
	if err != nil {
		return nil, s.fail("send", remote(ErrUserNotFound, err))
	}

	// Own code is refused before the lookup so the outcome never depends on store state.
	if NormalizeCode(toCode) == from.Code {
		return nil, s.fail("send", ErrSelfRequest)
	}

	to, err := s.directory.ResolveCode(ctx, toCode)
	if err != nil {
		return nil, s.fail("send", err)
	}
	if to.ID == from.ID {
		return nil, s.fail("send", ErrSelfRequest)
	}

	existing, err := s.partners.Get(ctx, from.ID, to.ID)
	switch {
	case err == nil:
		return nil, s.fail("send", alreadyPaired(existing.Status))
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.fail("send", remote(ErrRemoteFailure, err))
	}

	now := s.now()
	mine := &models.Partner{
		OwnerID:     from.ID,
		PartnerID:   to.ID,
		Name:        to.Name,
		Avatar:      to.Avatar,
		Code:        to.Code,
		Status:      models.StatusPending,
		RequestedBy: from.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	theirs := mine.Mirror(from)

	if err := s.partners.CreatePair(ctx, mine, theirs); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent request between the same users.
			return nil, s.fail("send", ErrAlreadyPending)
		}
		return nil, s.fail("send", remote(ErrRemoteFailure, err))
	}

	pairingTransitions.WithLabelValues("requested").Inc()
	log.Info().
		Str("user_id", from.ID).
		Str("partner_id", to.ID).
		Msg("Pairing requested")

	s.announce(mine)
	notifyUser(ctx, s.notifier, to.PushToken, to.ID, Notification{
		Title: "New partner request",
		Body:  fmt.Sprintf("%s wants to play with you", displayName(from)),
		Data:  map[string]string{"partner_id": from.ID},
	})

	return mine, nil
}

// Accept moves a pending pairing to accepted. Only the invited user may accept.
func (s *PairingService) Accept(ctx context.Context, actorID, partnerID string) (*models.Partner, error) {
	p, err := s.transition(ctx, "accept", actorID, partnerID, models.StatusAccepted)
	if err != nil {
		return nil, err
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", actorID).Msg("Skipping accept notification")
		return p, nil
	}
	requester, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", partnerID).Msg("Skipping accept notification")
		return p, nil
	}
	notifyUser(ctx, s.notifier, requester.PushToken, requester.ID, Notification{
		Title: "Request accepted",
		Body:  fmt.Sprintf("%s accepted your request", displayName(actor)),
		Data:  map[string]string{"partner_id": actorID},
	})
	return p, nil
}

// Reject moves a pending pairing to rejected. Both records are kept so the
// history stays visible until either side calls RemoveRejection.
func (s *PairingService) Reject(ctx context.Context, actorID, partnerID string) (*models.Partner, error) {
	return s.transition(ctx, "reject", actorID, partnerID, models.StatusRejected)
}

// RemoveRejection deletes a rejected pairing so a fresh request becomes possible
func (s *PairingService) RemoveRejection(ctx context.Context, actorID, partnerID string) error {
	p, err := s.load(ctx, actorID, partnerID)
	if err != nil {
		return s.fail("remove", err)
	}
	if err := models.CheckTransition(p, actorID, ""); err != nil {
		return s.fail("remove", fmt.Errorf("%w: %w", ErrInvalidState, err))
	}

	if err := s.partners.DeletePair(ctx, actorID, partnerID, models.StatusRejected); err != nil {
		return s.fail("remove", s.writeError(err))
	}

	pairingTransitions.WithLabelValues("removed").Inc()
	log.Info().
		Str("user_id", actorID).
		Str("partner_id", partnerID).
		Msg("Rejected pairing removed")

	for _, owner := range []string{actorID, partnerID} {
		s.publisher.Publish(PartnersTopic(owner), Event{
			Type:   EventPartnerChanged,
			UserID: owner,
			Data:   map[string]any{"partner_id": counterpart(owner, actorID, partnerID), "removed": true},
		})
	}
	return nil
}

// ListPairings returns every pairing record owned by userID, in store order
func (s *PairingService) ListPairings(ctx context.Context, userID string) ([]*models.Partner, error) {
	partners, err := s.partners.ListByOwner(ctx, userID)
	if err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}
	return partners, nil
}

// Get returns the pairing record owned by userID pointing at partnerID
func (s *PairingService) Get(ctx context.Context, userID, partnerID string) (*models.Partner, error) {
	return s.load(ctx, userID, partnerID)
}

// RequireAccepted returns the caller's record if the pairing is active
func (s *PairingService) RequireAccepted(ctx context.Context, userID, partnerID string) (*models.Partner, error) {
	p, err := s.load(ctx, userID, partnerID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusAccepted {
		return nil, ErrNotPaired
	}
	return p, nil
}

// AcceptedPartnerIDs returns the ids of every active partner of userID
func (s *PairingService) AcceptedPartnerIDs(ctx context.Context, userID string) ([]string, error) {
	partners, err := s.ListPairings(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range partners {
		if p.Status == models.StatusAccepted {
			ids = append(ids, p.PartnerID)
		}
	}
	return ids, nil
}

func (s *PairingService) transition(ctx context.Context, op, actorID, partnerID string, to models.PairingStatus) (*models.Partner, error) {
	p, err := s.load(ctx, actorID, partnerID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := models.CheckTransition(p, actorID, to); err != nil {
		return nil, s.fail(op, fmt.Errorf("%w: %w", ErrInvalidState, err))
	}

	now := s.now()
	if err := s.partners.TransitionPair(ctx, actorID, partnerID, p.Status, to, now); err != nil {
		return nil, s.fail(op, s.writeError(err))
	}

	pairingTransitions.WithLabelValues(string(to)).Inc()
	log.Info().
		Str("user_id", actorID).
		Str("partner_id", partnerID).
		Str("status", string(to)).
		Msg("Pairing updated")

	p.Status = to
	p.UpdatedAt = now
	s.announce(p)
	return p, nil
}

func (s *PairingService) load(ctx context.Context, ownerID, partnerID string) (*models.Partner, error) {
	p, err := s.partners.Get(ctx, ownerID, partnerID)
	if err != nil {
		return nil, remote(ErrPairingNotFound, err)
	}
	return p, nil
}

// announce tells both owners that their record for the pairing changed
func (s *PairingService) announce(p *models.Partner) {
	for _, owner := range []string{p.OwnerID, p.PartnerID} {
		s.publisher.Publish(PartnersTopic(owner), Event{
			Type:   EventPartnerChanged,
			UserID: owner,
			Data: map[string]any{
				"partner_id":   counterpart(owner, p.OwnerID, p.PartnerID),
				"status":       p.Status,
				"requested_by": p.RequestedBy,
			},
		})
	}
}

// writeError maps a failed mirrored write. A stale write means the status
// changed between our read and the write; it is reported as an invalid state.
func (s *PairingService) writeError(err error) error {
	if errors.Is(err, repository.ErrStale) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return fmt.Errorf("%w: %w", ErrRemoteFailure, err)
}

func (s *PairingService) fail(op string, err error) error {
	pairingFailures.WithLabelValues(op).Inc()
	return err
}

func alreadyPaired(status models.PairingStatus) error {
	switch status {
	case models.StatusAccepted:
		return ErrAlreadyAccepted
	case models.StatusRejected:
		return ErrAlreadyRejected
	default:
		return ErrAlreadyPending
	}
}

func counterpart(owner, a, b string) string {
	if owner == a {
		return b
	}
	return a
}

func displayName(u *models.User) string {
	if u.Name == "" {
		return "Someone"
	}
	return u.Name
}
