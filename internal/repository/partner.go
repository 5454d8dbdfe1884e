package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swipe-match-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	partnerColumns  = `owner_id, partner_id, name, avatar, code, status, requested_by, created_at, updated_at`
)

// PartnerRepository handles database operations for mirrored pairing records
type PartnerRepository struct {
	db *pgxpool.Pool
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(db *pgxpool.Pool) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// CreatePair inserts both halves of a pairing in one transaction
func (r *PartnerRepository) CreatePair(ctx context.Context, mine, theirs *models.Partner) error {
	query := `
		INSERT INTO partners (` + partnerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, p := range []*models.Partner{mine, theirs} {
			_, err := tx.Exec(ctx, query,
				p.OwnerID, p.PartnerID, p.Name, p.Avatar, p.Code,
				string(p.Status), p.RequestedBy, p.CreatedAt, p.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create pair: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create pair: %w", err)
	}
	return nil
}

// TransitionPair moves both halves from one status to another in one transaction
func (r *PartnerRepository) TransitionPair(ctx context.Context, ownerID, partnerID string, from, to models.PairingStatus, at time.Time) error {
	query := `
		UPDATE partners SET status = $3, updated_at = $4
		WHERE ((owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1))
		  AND status = $5
	`
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, ownerID, partnerID, string(to), at, string(from))
		if err != nil {
			return err
		}
		return checkMirrored(result.RowsAffected())
	})
	if err != nil {
		return fmt.Errorf("failed to transition pair %s/%s: %w", ownerID, partnerID, err)
	}
	return nil
}

// DeletePair removes both halves and the pair's viewed sets in one transaction
func (r *PartnerRepository) DeletePair(ctx context.Context, ownerID, partnerID string, from models.PairingStatus) error {
	query := `
		DELETE FROM partners
		WHERE ((owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1))
		  AND status = $3
	`
	viewedQuery := `
		DELETE FROM viewed_cards
		WHERE (owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1)
	`
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, ownerID, partnerID, string(from))
		if err != nil {
			return err
		}
		if err := checkMirrored(result.RowsAffected()); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, viewedQuery, ownerID, partnerID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete pair %s/%s: %w", ownerID, partnerID, err)
	}
	return nil
}

// Get retrieves the half owned by ownerID pointing at partnerID
func (r *PartnerRepository) Get(ctx context.Context, ownerID, partnerID string) (*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE owner_id = $1 AND partner_id = $2`
	partner, err := scanPartner(r.db.QueryRow(ctx, query, ownerID, partnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("partner %s/%s: %w", ownerID, partnerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return partner, nil
}

// ListByOwner retrieves every half owned by ownerID
func (r *PartnerRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE owner_id = $1`
	return r.list(ctx, query, ownerID)
}

// ListAll retrieves every pairing half
func (r *PartnerRepository) ListAll(ctx context.Context) ([]*models.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners`
	return r.list(ctx, query)
}

// DeleteHalf removes a single half whose mirror is missing
func (r *PartnerRepository) DeleteHalf(ctx context.Context, ownerID, partnerID string) error {
	query := `
		DELETE FROM partners p
		WHERE p.owner_id = $1 AND p.partner_id = $2
		  AND NOT EXISTS (SELECT 1 FROM partners m WHERE m.owner_id = $2 AND m.partner_id = $1)
	`
	result, err := r.db.Exec(ctx, query, ownerID, partnerID)
	if err != nil {
		return fmt.Errorf("failed to delete orphan half: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("orphan half %s/%s: %w", ownerID, partnerID, ErrNotFound)
	}
	return nil
}

// RepairStatus forces both halves to the given status in one transaction
func (r *PartnerRepository) RepairStatus(ctx context.Context, ownerID, partnerID string, status models.PairingStatus, at time.Time) error {
	query := `
		UPDATE partners SET status = $3, updated_at = $4
		WHERE (owner_id = $1 AND partner_id = $2) OR (owner_id = $2 AND partner_id = $1)
	`
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, ownerID, partnerID, string(status), at)
		if err != nil {
			return err
		}
		return checkMirrored(result.RowsAffected())
	})
	if err != nil {
		return fmt.Errorf("failed to repair pair %s/%s: %w", ownerID, partnerID, err)
	}
	return nil
}

// AddViewed records that ownerID skipped cardID while paired with partnerID
func (r *PartnerRepository) AddViewed(ctx context.Context, ownerID, partnerID, cardID string) error {
	query := `
		INSERT INTO viewed_cards (owner_id, partner_id, card_id, viewed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner_id, partner_id, card_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, ownerID, partnerID, cardID); err != nil {
		return fmt.Errorf("failed to add viewed card: %w", err)
	}
	return nil
}

// ListViewed retrieves the viewed set of ownerID within the pairing with partnerID
func (r *PartnerRepository) ListViewed(ctx context.Context, ownerID, partnerID string) ([]string, error) {
	query := `SELECT card_id FROM viewed_cards WHERE owner_id = $1 AND partner_id = $2`
	rows, err := r.db.Query(ctx, query, ownerID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get viewed cards: %w", err)
	}
	cardIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan viewed cards: %w", err)
	}
	return cardIDs, nil
}

func (r *PartnerRepository) list(ctx context.Context, query string, args ...any) ([]*models.Partner, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get partners: %w", err)
	}
	defer rows.Close()

	var partners []*models.Partner
	for rows.Next() {
		partner, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, partner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partners: %w", err)
	}

	return partners, nil
}

// checkMirrored turns an affected-row count into the mirrored-write outcome.
// Returning an error inside BeginFunc rolls the transaction back.
func checkMirrored(affected int64) error {
	switch affected {
	case 2:
		return nil
	case 0:
		return ErrStale
	default:
		return fmt.Errorf("%w: %d halves affected", ErrMirrorMismatch, affected)
	}
}

func scanPartner(row pgx.Row) (*models.Partner, error) {
	var (
		partner models.Partner
		status  string
	)
	err := row.Scan(
		&partner.OwnerID, &partner.PartnerID, &partner.Name, &partner.Avatar, &partner.Code,
		&status, &partner.RequestedBy, &partner.CreatedAt, &partner.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	partner.Status, err = models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &partner, nil
}
