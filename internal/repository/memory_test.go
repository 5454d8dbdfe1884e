package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"swipe-match-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected")

func pendingPair(owner, partner string) (*models.Partner, *models.Partner) {
	now := time.Now()
	mine := &models.Partner{
		OwnerID:     owner,
		PartnerID:   partner,
		Status:      models.StatusPending,
		RequestedBy: owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	theirs := mine.Mirror(&models.User{ID: owner})
	return mine, theirs
}

func TestMemoryCreatePairIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.InjectFault(func(op string) error {
		if op == "partners.create" {
			return errInjected
		}
		return nil
	})

	mine, theirs := pendingPair("a", "b")
	err := m.Partners().CreatePair(ctx, mine, theirs)
	require.ErrorIs(t, err, errInjected)

	all, err := m.Partners().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "no half may be written when the commit fails")

	m.InjectFault(nil)
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	all, err = m.Partners().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryCreatePairConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	// Same pair from the other side.
	mine, theirs = pendingPair("b", "a")
	assert.ErrorIs(t, m.Partners().CreatePair(ctx, mine, theirs), ErrConflict)
}

func TestMemoryTransitionPair(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	at := time.Now().Add(time.Minute)
	require.NoError(t, m.Partners().TransitionPair(ctx, "b", "a", models.StatusPending, models.StatusAccepted, at))

	for _, key := range [][2]string{{"a", "b"}, {"b", "a"}} {
		p, err := m.Partners().Get(ctx, key[0], key[1])
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, p.Status)
		assert.True(t, p.UpdatedAt.Equal(at))
	}

	// The expected source status no longer holds.
	err := m.Partners().TransitionPair(ctx, "b", "a", models.StatusPending, models.StatusRejected, at)
	assert.ErrorIs(t, err, ErrStale)
}

func TestMemoryTransitionPairFault(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	m.InjectFault(func(op string) error { return errInjected })
	err := m.Partners().TransitionPair(ctx, "b", "a", models.StatusPending, models.StatusAccepted, time.Now())
	require.ErrorIs(t, err, errInjected)

	all, err := m.Partners().ListAll(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.Equal(t, models.StatusPending, p.Status)
	}
}

func TestMemoryTransitionPairMirrorMismatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, _ := pendingPair("a", "b")
	m.WriteHalf(mine)

	err := m.Partners().TransitionPair(ctx, "a", "b", models.StatusPending, models.StatusAccepted, time.Now())
	assert.ErrorIs(t, err, ErrMirrorMismatch)

	p, err := m.Partners().Get(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, p.Status)
}

func TestMemoryDeletePair(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))
	require.NoError(t, m.Partners().AddViewed(ctx, "a", "b", "c1"))

	// Only rejected pairings are deleted.
	assert.ErrorIs(t, m.Partners().DeletePair(ctx, "a", "b", models.StatusRejected), ErrStale)

	require.NoError(t, m.Partners().TransitionPair(ctx, "b", "a", models.StatusPending, models.StatusRejected, time.Now()))
	require.NoError(t, m.Partners().DeletePair(ctx, "a", "b", models.StatusRejected))

	all, err := m.Partners().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	viewed, err := m.Partners().ListViewed(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, viewed)
}

func TestMemoryDeleteHalf(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	// A mirrored half is not an orphan.
	assert.ErrorIs(t, m.Partners().DeleteHalf(ctx, "a", "b"), ErrNotFound)

	orphan, _ := pendingPair("c", "d")
	m.WriteHalf(orphan)
	require.NoError(t, m.Partners().DeleteHalf(ctx, "c", "d"))

	_, err := m.Partners().Get(ctx, "c", "d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserCodeUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Users().Create(ctx, &models.User{ID: "a", Code: "ABC123"}))

	err := m.Users().Create(ctx, &models.User{ID: "b", Code: "ABC123"})
	assert.ErrorIs(t, err, ErrCodeTaken)

	exists, err := m.Users().CodeExists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = m.Users().CodeExists(ctx, "XYZ789")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryLikesAndHighlights(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Users().Create(ctx, &models.User{ID: "a", Code: "ABC123"}))

	require.NoError(t, m.Users().AddLikedCard(ctx, "a", "c1"))
	require.NoError(t, m.Users().AddLikedCard(ctx, "a", "c1"))

	on, err := m.Users().ToggleHighlight(ctx, "a", "c1")
	require.NoError(t, err)
	assert.True(t, on)
	off, err := m.Users().ToggleHighlight(ctx, "a", "c1")
	require.NoError(t, err)
	assert.False(t, off)

	u, err := m.Users().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, u.LikedCards)
	assert.Empty(t, u.HighlightedCards)

	assert.ErrorIs(t, m.Users().AddLikedCard(ctx, "missing", "c1"), ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Users().Create(ctx, &models.User{ID: "a", Code: "ABC123", LikedCards: []string{"c1"}}))

	u, err := m.Users().GetByID(ctx, "a")
	require.NoError(t, err)
	u.LikedCards[0] = "changed"
	u.Code = "ZZZZZZ"

	again, err := m.Users().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, again.LikedCards)
	assert.Equal(t, "ABC123", again.Code)
}

func TestMemoryCardsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, id := range []string{"z", "a", "m"} {
		require.NoError(t, m.Cards().Create(ctx, &models.Card{ID: id}))
	}
	require.NoError(t, m.Cards().Delete(ctx, "a"))

	cards, err := m.Cards().List(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "z", cards[0].ID)
	assert.Equal(t, "m", cards[1].ID)

	assert.ErrorIs(t, m.Cards().Delete(ctx, "a"), ErrNotFound)
	assert.ErrorIs(t, m.Cards().Update(ctx, &models.Card{ID: "a"}), ErrNotFound)
}

func TestMemoryReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Users().Create(ctx, &models.User{ID: "a", Code: "ABC123"}))
	require.NoError(t, m.Users().AddLikedCard(ctx, "a", "c1"))
	require.NoError(t, m.Cards().Create(ctx, &models.Card{ID: "c1"}))
	mine, theirs := pendingPair("a", "b")
	require.NoError(t, m.Partners().CreatePair(ctx, mine, theirs))

	require.NoError(t, m.Reset(ctx))

	u, err := m.Users().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, u.LikedCards)

	cards, err := m.Cards().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	all, err := m.Partners().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
