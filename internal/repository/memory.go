package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"swipe-match-backend/internal/models"
)

// FaultFunc is consulted by Memory after a mirrored write has been staged and
// before it is committed. A non-nil return aborts the whole write.
type FaultFunc func(op string) error

type partnerKey struct {
	owner, partner string
}

type viewedKey struct {
	owner, partner, card string
}

// Memory is an in-process Store used for local runs and tests
type Memory struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	partners map[partnerKey]*models.Partner
	viewed   map[viewedKey]struct{}
	cards    map[string]*models.Card
	order    []string
	fault    FaultFunc
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]*models.User),
		partners: make(map[partnerKey]*models.Partner),
		viewed:   make(map[viewedKey]struct{}),
		cards:    make(map[string]*models.Card),
	}
}

// InjectFault installs fn as the commit hook for mirrored writes. Pass nil to clear.
func (m *Memory) InjectFault(fn FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

// WriteHalf stores p without touching its mirror. It exists to seed
// divergent state for reconciliation tests.
func (m *Memory) WriteHalf(p *models.Partner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partners[partnerKey{p.OwnerID, p.PartnerID}] = clonePartner(p)
}

func (m *Memory) Users() UserStore      { return memoryUsers{m} }
func (m *Memory) Partners() PartnerStore { return memoryPartners{m} }
func (m *Memory) Cards() CardStore       { return memoryCards{m} }

// Reset clears pairings, preferences, viewed sets and cards
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkFault("reset"); err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}

	m.partners = make(map[partnerKey]*models.Partner)
	m.viewed = make(map[viewedKey]struct{})
	m.cards = make(map[string]*models.Card)
	m.order = nil
	for _, user := range m.users {
		user.LikedCards = nil
		user.HighlightedCards = nil
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {}

func (m *Memory) checkFault(op string) error {
	if m.fault == nil {
		return nil
	}
	return m.fault(op)
}

type memoryUsers struct{ m *Memory }

func (s memoryUsers) Create(ctx context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.users[user.ID]; ok {
		return fmt.Errorf("failed to create user: %w", ErrConflict)
	}
	for _, existing := range s.m.users {
		if existing.Code == user.Code {
			return fmt.Errorf("failed to create user: %w", ErrCodeTaken)
		}
	}
	s.m.users[user.ID] = cloneUser(user)
	return nil
}

func (s memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	user, ok := s.m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return cloneUser(user), nil
}

func (s memoryUsers) GetByCode(ctx context.Context, code string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	for _, user := range s.m.users {
		if user.Code == code {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("code %s: %w", code, ErrNotFound)
}

func (s memoryUsers) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.GetByCode(ctx, code)
	return err == nil, nil
}

func (s memoryUsers) UpdateProfile(ctx context.Context, userID, name, avatar string) error {
	return s.update(userID, func(u *models.User) {
		u.Name = name
		u.Avatar = avatar
	})
}

func (s memoryUsers) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return s.update(userID, func(u *models.User) {
		u.PushToken = pushToken
	})
}

func (s memoryUsers) AddLikedCard(ctx context.Context, userID, cardID string) error {
	return s.update(userID, func(u *models.User) {
		if !slices.Contains(u.LikedCards, cardID) {
			u.LikedCards = append(u.LikedCards, cardID)
		}
	})
}

func (s memoryUsers) ToggleHighlight(ctx context.Context, userID, cardID string) (bool, error) {
	var highlighted bool
	err := s.update(userID, func(u *models.User) {
		if i := slices.Index(u.HighlightedCards, cardID); i >= 0 {
			u.HighlightedCards = slices.Delete(u.HighlightedCards, i, i+1)
			return
		}
		u.HighlightedCards = append(u.HighlightedCards, cardID)
		highlighted = true
	})
	return highlighted, err
}

func (s memoryUsers) update(userID string, fn func(*models.User)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	user, ok := s.m.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	fn(user)
	return nil
}

type memoryPartners struct{ m *Memory }

func (s memoryPartners) CreatePair(ctx context.Context, mine, theirs *models.Partner) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	staged := []*models.Partner{clonePartner(mine), clonePartner(theirs)}
	for _, p := range staged {
		if _, ok := s.m.partners[partnerKey{p.OwnerID, p.PartnerID}]; ok {
			return fmt.Errorf("failed to create pair: %w", ErrConflict)
		}
	}
	if err := s.m.checkFault("partners.create"); err != nil {
		return fmt.Errorf("failed to create pair: %w", err)
	}
	for _, p := range staged {
		s.m.partners[partnerKey{p.OwnerID, p.PartnerID}] = p
	}
	return nil
}

func (s memoryPartners) TransitionPair(ctx context.Context, ownerID, partnerID string, from, to models.PairingStatus, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	halves, err := s.mirrored(ownerID, partnerID, &from)
	if err != nil {
		return fmt.Errorf("failed to transition pair %s/%s: %w", ownerID, partnerID, err)
	}
	if err := s.m.checkFault("partners.transition"); err != nil {
		return fmt.Errorf("failed to transition pair %s/%s: %w", ownerID, partnerID, err)
	}
	for _, p := range halves {
		p.Status = to
		p.UpdatedAt = at
	}
	return nil
}

func (s memoryPartners) DeletePair(ctx context.Context, ownerID, partnerID string, from models.PairingStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, err := s.mirrored(ownerID, partnerID, &from); err != nil {
		return fmt.Errorf("failed to delete pair %s/%s: %w", ownerID, partnerID, err)
	}
	if err := s.m.checkFault("partners.delete"); err != nil {
		return fmt.Errorf("failed to delete pair %s/%s: %w", ownerID, partnerID, err)
	}
	delete(s.m.partners, partnerKey{ownerID, partnerID})
	delete(s.m.partners, partnerKey{partnerID, ownerID})
	for key := range s.m.viewed {
		if (key.owner == ownerID && key.partner == partnerID) || (key.owner == partnerID && key.partner == ownerID) {
			delete(s.m.viewed, key)
		}
	}
	return nil
}

func (s memoryPartners) Get(ctx context.Context, ownerID, partnerID string) (*models.Partner, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	p, ok := s.m.partners[partnerKey{ownerID, partnerID}]
	if !ok {
		return nil, fmt.Errorf("partner %s/%s: %w", ownerID, partnerID, ErrNotFound)
	}
	return clonePartner(p), nil
}

func (s memoryPartners) ListByOwner(ctx context.Context, ownerID string) ([]*models.Partner, error) {
	return s.list(func(p *models.Partner) bool { return p.OwnerID == ownerID }), nil
}

func (s memoryPartners) ListAll(ctx context.Context) ([]*models.Partner, error) {
	return s.list(func(*models.Partner) bool { return true }), nil
}

func (s memoryPartners) DeleteHalf(ctx context.Context, ownerID, partnerID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := partnerKey{ownerID, partnerID}
	_, exists := s.m.partners[key]
	_, mirrored := s.m.partners[partnerKey{partnerID, ownerID}]
	if !exists || mirrored {
		return fmt.Errorf("orphan half %s/%s: %w", ownerID, partnerID, ErrNotFound)
	}
	delete(s.m.partners, key)
	return nil
}

func (s memoryPartners) RepairStatus(ctx context.Context, ownerID, partnerID string, status models.PairingStatus, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	halves, err := s.mirrored(ownerID, partnerID, nil)
	if err != nil {
		return fmt.Errorf("failed to repair pair %s/%s: %w", ownerID, partnerID, err)
	}
	for _, p := range halves {
		p.Status = status
		p.UpdatedAt = at
	}
	return nil
}

func (s memoryPartners) AddViewed(ctx context.Context, ownerID, partnerID, cardID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	s.m.viewed[viewedKey{ownerID, partnerID, cardID}] = struct{}{}
	return nil
}

func (s memoryPartners) ListViewed(ctx context.Context, ownerID, partnerID string) ([]string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var cardIDs []string
	for key := range s.m.viewed {
		if key.owner == ownerID && key.partner == partnerID {
			cardIDs = append(cardIDs, key.card)
		}
	}
	sort.Strings(cardIDs)
	return cardIDs, nil
}

// mirrored returns both halves, optionally requiring they are in status from.
// Callers must hold the write lock.
func (s memoryPartners) mirrored(ownerID, partnerID string, from *models.PairingStatus) ([]*models.Partner, error) {
	var halves []*models.Partner
	for _, key := range []partnerKey{{ownerID, partnerID}, {partnerID, ownerID}} {
		p, ok := s.m.partners[key]
		if ok && (from == nil || p.Status == *from) {
			halves = append(halves, p)
		}
	}
	switch len(halves) {
	case 2:
		return halves, nil
	case 0:
		return nil, ErrStale
	default:
		return nil, fmt.Errorf("%w: %d halves affected", ErrMirrorMismatch, len(halves))
	}
}

func (s memoryPartners) list(keep func(*models.Partner) bool) []*models.Partner {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var partners []*models.Partner
	for _, p := range s.m.partners {
		if keep(p) {
			partners = append(partners, clonePartner(p))
		}
	}
	sort.Slice(partners, func(i, j int) bool {
		if partners[i].OwnerID != partners[j].OwnerID {
			return partners[i].OwnerID < partners[j].OwnerID
		}
		return partners[i].PartnerID < partners[j].PartnerID
	})
	return partners
}

type memoryCards struct{ m *Memory }

func (s memoryCards) List(ctx context.Context) ([]*models.Card, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	cards := make([]*models.Card, 0, len(s.m.order))
	for _, id := range s.m.order {
		card := *s.m.cards[id]
		cards = append(cards, &card)
	}
	return cards, nil
}

func (s memoryCards) Get(ctx context.Context, id string) (*models.Card, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	card, ok := s.m.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	c := *card
	return &c, nil
}

func (s memoryCards) Create(ctx context.Context, card *models.Card) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.cards[card.ID]; ok {
		return fmt.Errorf("failed to create card: %w", ErrConflict)
	}
	c := *card
	s.m.cards[card.ID] = &c
	s.m.order = append(s.m.order, card.ID)
	return nil
}

func (s memoryCards) Update(ctx context.Context, card *models.Card) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.cards[card.ID]; !ok {
		return fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
	}
	c := *card
	s.m.cards[card.ID] = &c
	return nil
}

func (s memoryCards) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	delete(s.m.cards, id)
	s.m.order = slices.DeleteFunc(s.m.order, func(existing string) bool { return existing == id })
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.LikedCards = slices.Clone(u.LikedCards)
	c.HighlightedCards = slices.Clone(u.HighlightedCards)
	if u.PushToken != nil {
		token := *u.PushToken
		c.PushToken = &token
	}
	return &c
}

func clonePartner(p *models.Partner) *models.Partner {
	c := *p
	return &c
}
