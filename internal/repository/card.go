package repository

import (
	"context"
	"errors"
	"fmt"

	"swipe-match-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CardRepository handles database operations for the card catalogue
type CardRepository struct {
	db *pgxpool.Pool
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *pgxpool.Pool) *CardRepository {
	return &CardRepository{db: db}
}

// List retrieves the whole catalogue in insertion order
func (r *CardRepository) List(ctx context.Context) ([]*models.Card, error) {
	query := `
		SELECT id, title, description, category, image
		FROM cards
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// Get retrieves a card by ID
func (r *CardRepository) Get(ctx context.Context, id string) (*models.Card, error) {
	query := `SELECT id, title, description, category, image FROM cards WHERE id = $1`
	card, err := scanCard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// Create creates a new card
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (id, title, description, category, image, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`
	_, err := r.db.Exec(ctx, query, card.ID, card.Title, card.Description, string(card.Category), card.Image)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create card: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a card
func (r *CardRepository) Update(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE cards SET title = $1, description = $2, category = $3, image = $4
		WHERE id = $5
	`
	result, err := r.db.Exec(ctx, query, card.Title, card.Description, string(card.Category), card.Image, card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a card by ID
func (r *CardRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM cards WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var (
		card     models.Card
		category string
	)
	if err := row.Scan(&card.ID, &card.Title, &card.Description, &category, &card.Image); err != nil {
		return nil, err
	}
	card.Category = models.Category(category)
	return &card, nil
}
