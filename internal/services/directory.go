package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"
)

const (
	codeLength      = 6
	codeChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

// Directory resolves invitation codes to users and issues new codes
type Directory struct {
	users    repository.UserStore
	generate func() string
}

// NewDirectory creates a new partner directory
func NewDirectory(users repository.UserStore) *Directory {
	return &Directory{
		users:    users,
		generate: generateCode,
	}
}

// NormalizeCode trims and uppercases a human-entered code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveCode looks up the user holding code
func (d *Directory) ResolveCode(ctx context.Context, code string) (*models.User, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeNotFound
	}

	user, err := d.users.GetByCode(ctx, code)
	if err != nil {
		return nil, remote(ErrCodeNotFound, err)
	}
	return user, nil
}

// IssueCode generates a code that no user currently holds.
// The existence check and the later insert are not atomic; the store's
// unique constraint rejects the loser of that race with repository.ErrCodeTaken.
func (d *Directory) IssueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := d.generate()
		exists, err := d.users.CodeExists(ctx, code)
		if err != nil {
			return "", remote(ErrRemoteFailure, err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// generateCode generates a random 6-character code
func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
