package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	avatar            TEXT NOT NULL DEFAULT '',
	code              TEXT NOT NULL,
	liked_cards       TEXT[] NOT NULL DEFAULT '{}',
	highlighted_cards TEXT[] NOT NULL DEFAULT '{}',
	push_token        TEXT,
	created_at        TIMESTAMPTZ NOT NULL,
	CONSTRAINT users_code_key UNIQUE (code)
);

CREATE TABLE IF NOT EXISTS partners (
	owner_id     TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	partner_id   TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	name         TEXT NOT NULL DEFAULT '',
	avatar       TEXT NOT NULL DEFAULT '',
	code         TEXT NOT NULL,
	status       TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
	requested_by TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, partner_id)
);

CREATE TABLE IF NOT EXISTS viewed_cards (
	owner_id   TEXT NOT NULL,
	partner_id TEXT NOT NULL,
	card_id    TEXT NOT NULL,
	viewed_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, partner_id, card_id)
);

CREATE TABLE IF NOT EXISTS cards (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	category    TEXT NOT NULL,
	image       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is the PostgreSQL-backed Store
type Postgres struct {
	db       *pgxpool.Pool
	users    *UserRepository
	partners *PartnerRepository
	cards    *CardRepository
}

// NewPostgres wraps an open pool
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db:       db,
		users:    NewUserRepository(db),
		partners: NewPartnerRepository(db),
		cards:    NewCardRepository(db),
	}
}

// Connect opens a pool, pings it and applies the schema
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return NewPostgres(db), nil
}

func (p *Postgres) Users() UserStore       { return p.users }
func (p *Postgres) Partners() PartnerStore { return p.partners }
func (p *Postgres) Cards() CardStore       { return p.cards }

// Reset clears pairings, preferences, viewed sets and cards
func (p *Postgres) Reset(ctx context.Context) error {
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		statements := []string{
			`DELETE FROM viewed_cards`,
			`DELETE FROM partners`,
			`UPDATE users SET liked_cards = '{}', highlighted_cards = '{}'`,
			`DELETE FROM cards`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close closes the pool
func (p *Postgres) Close() {
	p.db.Close()
}
