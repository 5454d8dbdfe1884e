package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	token string
	n     Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(ctx context.Context, token string, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{token: token, n: n})
	return nil
}

func (r *recordingNotifier) tokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tokens []string
	for _, s := range r.sent {
		tokens = append(tokens, s.token)
	}
	return tokens
}

type testEnv struct {
	store    *repository.Memory
	hub      *Hub
	notifier *recordingNotifier
	dir      *Directory
	pairing  *PairingService
	cards    *CardService
	matches  *MatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemory()
	hub := NewHub()
	notifier := &recordingNotifier{}
	dir := NewDirectory(store.Users())
	pairing := NewPairingService(store.Partners(), store.Users(), dir, hub, notifier)
	cards := NewCardService(store, time.Minute)
	matches := NewMatchService(store.Users(), store.Partners(), pairing, cards, hub, notifier)

	return &testEnv{
		store:    store,
		hub:      hub,
		notifier: notifier,
		dir:      dir,
		pairing:  pairing,
		cards:    cards,
		matches:  matches,
	}
}

func (e *testEnv) addUser(t *testing.T, id, code string) *models.User {
	t.Helper()
	token := "device-" + id
	user := &models.User{ID: id, Name: "user " + id, Code: code, PushToken: &token, CreatedAt: time.Now()}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) addCards(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.store.Cards().Create(context.Background(), &models.Card{
			ID:       id,
			Title:    "Card " + id,
			Category: models.CategoryNew,
		}))
	}
}

// pair creates an accepted pairing requested by a
func (e *testEnv) pair(t *testing.T, a, b *models.User) {
	t.Helper()
	ctx := context.Background()
	_, err := e.pairing.SendRequest(ctx, a.ID, b.Code)
	require.NoError(t, err)
	_, err = e.pairing.Accept(ctx, b.ID, a.ID)
	require.NoError(t, err)
}

func (e *testEnv) halves(t *testing.T, a, b string) (*models.Partner, *models.Partner) {
	t.Helper()
	ctx := context.Background()
	mine, err := e.store.Partners().Get(ctx, a, b)
	require.NoError(t, err)
	theirs, err := e.store.Partners().Get(ctx, b, a)
	require.NoError(t, err)
	return mine, theirs
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
