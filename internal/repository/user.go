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

const userColumns = `id, name, email, avatar, code, liked_cards, highlighted_cards, push_token, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	liked := user.LikedCards
	if liked == nil {
		liked = []string{}
	}
	highlighted := user.HighlightedCards
	if highlighted == nil {
		highlighted = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.Avatar, user.Code,
		liked, highlighted, user.PushToken, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "users_code_key" {
				return fmt.Errorf("failed to create user: %w", ErrCodeTaken)
			}
			return fmt.Errorf("failed to create user: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByCode retrieves a user by invitation code
func (r *UserRepository) GetByCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE code = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("code %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by code: %w", err)
	}
	return user, nil
}

// CodeExists checks if a code already exists
func (r *UserRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE code = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates the display name and avatar of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, userID, name, avatar string) error {
	query := `UPDATE users SET name = $1, avatar = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, name, avatar, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// AddLikedCard adds cardID to the liked set; liking twice is a no-op
func (r *UserRepository) AddLikedCard(ctx context.Context, userID, cardID string) error {
	query := `
		UPDATE users
		SET liked_cards = CASE
			WHEN $2::text = ANY(liked_cards) THEN liked_cards
			ELSE array_append(liked_cards, $2::text)
		END
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, userID, cardID)
	if err != nil {
		return fmt.Errorf("failed to add liked card: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ToggleHighlight flips cardID in the highlighted set and reports whether it is now highlighted
func (r *UserRepository) ToggleHighlight(ctx context.Context, userID, cardID string) (bool, error) {
	query := `
		UPDATE users
		SET highlighted_cards = CASE
			WHEN $2::text = ANY(highlighted_cards) THEN array_remove(highlighted_cards, $2::text)
			ELSE array_append(highlighted_cards, $2::text)
		END
		WHERE id = $1
		RETURNING $2::text = ANY(highlighted_cards)
	`
	var highlighted bool
	err := r.db.QueryRow(ctx, query, userID, cardID).Scan(&highlighted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return false, fmt.Errorf("failed to toggle highlight: %w", err)
	}
	return highlighted, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Avatar, &user.Code,
		&user.LikedCards, &user.HighlightedCards, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
