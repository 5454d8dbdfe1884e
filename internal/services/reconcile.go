package services

import (
	"context"

	"swipe-match-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ReconcileReport summarizes a reconciliation pass
type ReconcileReport struct {
	Scanned         int `json:"scanned"`
	OrphansRemoved  int `json:"orphans_removed"`
	StatusesAligned int `json:"statuses_aligned"`
	Failed          int `json:"failed"`
}

// Reconcile finds pairings whose mirrored halves diverged and repairs them.
// A half without a mirror is deleted. Halves with different statuses both
// take the status of the most recently updated half.
func (s *PairingService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	all, err := s.partners.ListAll(ctx)
	if err != nil {
		return nil, remote(ErrRemoteFailure, err)
	}

	type key struct{ owner, partner string }
	index := make(map[key]*models.Partner, len(all))
	for _, p := range all {
		index[key{p.OwnerID, p.PartnerID}] = p
	}

	report := &ReconcileReport{Scanned: len(all)}
	for _, p := range all {
		mirror, ok := index[key{p.PartnerID, p.OwnerID}]
		if !ok {
			if err := s.partners.DeleteHalf(ctx, p.OwnerID, p.PartnerID); err != nil {
				report.Failed++
				log.Error().Err(err).Str("owner_id", p.OwnerID).Str("partner_id", p.PartnerID).Msg("Failed to remove orphan half")
				continue
			}
			report.OrphansRemoved++
			mirrorRepairs.WithLabelValues("orphan").Inc()
			log.Warn().Str("owner_id", p.OwnerID).Str("partner_id", p.PartnerID).Msg("Removed orphan pairing half")
			continue
		}

		// Visit each diverged pair once.
		if p.Status == mirror.Status || p.OwnerID > p.PartnerID {
			continue
		}

		winner := p
		if mirror.UpdatedAt.After(p.UpdatedAt) {
			winner = mirror
		}
		if err := s.partners.RepairStatus(ctx, p.OwnerID, p.PartnerID, winner.Status, s.now()); err != nil {
			report.Failed++
			log.Error().Err(err).Str("owner_id", p.OwnerID).Str("partner_id", p.PartnerID).Msg("Failed to align pairing status")
			continue
		}
		report.StatusesAligned++
		mirrorRepairs.WithLabelValues("status").Inc()
		log.Warn().
			Str("owner_id", p.OwnerID).
			Str("partner_id", p.PartnerID).
			Str("status", string(winner.Status)).
			Msg("Aligned diverged pairing status")
	}

	return report, nil
}
