package repository

import (
	"context"
	"errors"
	"time"

	"swipe-match-backend/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrCodeTaken      = errors.New("code already taken")
	ErrConflict       = errors.New("record already exists")
	ErrStale          = errors.New("record changed concurrently")
	ErrMirrorMismatch = errors.New("mirrored records diverged")
)

// UserStore persists user identities and their card preferences
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByCode(ctx context.Context, code string) (*models.User, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateProfile(ctx context.Context, userID, name, avatar string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	AddLikedCard(ctx context.Context, userID, cardID string) error
	ToggleHighlight(ctx context.Context, userID, cardID string) (bool, error)
}

// PartnerStore persists mirrored pairing records. Every *Pair method writes
// both halves in one unit of work or neither.
type PartnerStore interface {
	CreatePair(ctx context.Context, mine, theirs *models.Partner) error
	TransitionPair(ctx context.Context, ownerID, partnerID string, from, to models.PairingStatus, at time.Time) error
	DeletePair(ctx context.Context, ownerID, partnerID string, from models.PairingStatus) error
	Get(ctx context.Context, ownerID, partnerID string) (*models.Partner, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Partner, error)

	// Repair helpers, only used by reconciliation.
	ListAll(ctx context.Context) ([]*models.Partner, error)
	DeleteHalf(ctx context.Context, ownerID, partnerID string) error
	RepairStatus(ctx context.Context, ownerID, partnerID string, status models.PairingStatus, at time.Time) error

	AddViewed(ctx context.Context, ownerID, partnerID, cardID string) error
	ListViewed(ctx context.Context, ownerID, partnerID string) ([]string, error)
}

// CardStore persists the card catalogue
type CardStore interface {
	List(ctx context.Context) ([]*models.Card, error)
	Get(ctx context.Context, id string) (*models.Card, error)
	Create(ctx context.Context, card *models.Card) error
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id string) error
}

// Store is the document store backing the service
type Store interface {
	Users() UserStore
	Partners() PartnerStore
	Cards() CardStore

	// Reset clears pairings, preferences, viewed sets and cards in one transaction.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
