package models

import (
	"errors"
	"fmt"
)

// PairingStatus is the lifecycle state of a pairing
type PairingStatus string

const (
	StatusPending  PairingStatus = "pending"
	StatusAccepted PairingStatus = "accepted"
	StatusRejected PairingStatus = "rejected"
)

var (
	ErrIllegalTransition = errors.New("transition not allowed")
	ErrRequesterResponse = errors.New("requester cannot respond to own request")
	ErrUnknownStatus     = errors.New("unknown pairing status")
)

// transitions lists every legal target per source status. Removal of a
// rejected pairing is modelled as a transition to "" (no record).
var transitions = map[PairingStatus][]PairingStatus{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusRejected: {""},
}

// Valid reports whether s is a known status
func (s PairingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// ParseStatus converts a stored string into a PairingStatus
func ParseStatus(s string) (PairingStatus, error) {
	status := PairingStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// CheckTransition is the single guard for every pairing state change.
// to == "" means the mirrored records are removed.
func CheckTransition(p *Partner, actorID string, to PairingStatus) error {
	allowed := false
	for _, next := range transitions[p.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		target := string(to)
		if target == "" {
			target = "removed"
		}
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, target)
	}

	// Only the invited side may answer a pending request.
	if p.Status == StatusPending && p.RequestedBy == actorID {
		return ErrRequesterResponse
	}
	return nil
}
