package services

import (
	"errors"
	"fmt"

	"swipe-match-backend/internal/repository"
)

// Error taxonomy. Every error returned by a service wraps exactly one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrSelfReference = errors.New("cannot act on yourself")
	ErrInvalidState  = errors.New("invalid state")
	ErrRemoteFailure = errors.New("remote failure")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
)

var (
	ErrCodeNotFound    = fmt.Errorf("%w: partner code", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrPairingNotFound = fmt.Errorf("%w: pairing", ErrNotFound)
	ErrCardNotFound    = fmt.Errorf("%w: card", ErrNotFound)

	ErrSelfRequest = fmt.Errorf("%w: own code", ErrSelfReference)

	ErrAlreadyPending  = fmt.Errorf("%w: request already pending", ErrInvalidState)
	ErrAlreadyAccepted = fmt.Errorf("%w: already partners", ErrInvalidState)
	ErrAlreadyRejected = fmt.Errorf("%w: request was rejected", ErrInvalidState)
	ErrNotPaired       = fmt.Errorf("%w: pairing not accepted", ErrInvalidState)
	ErrCodeExhausted   = fmt.Errorf("%w: no free invitation code", ErrRemoteFailure)

	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image type", ErrInvalidInput)
	ErrImageTooLarge    = fmt.Errorf("%w: image too large", ErrInvalidInput)
)

// remote wraps a store error, keeping not-found distinct from backend failure
func remote(notFound error, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%w: %w", ErrRemoteFailure, err)
}
