package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 32

// Event types pushed over the live feed
const (
	EventPartnerLiked   = "partner_liked"
	EventPartnerChanged = "partner_changed"
	EventPartnerStatus  = "partner_status"
	EventMatch          = "match"
	EventError          = "error"
)

// Event is a single live-feed notification
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// LikesTopic carries every like recorded by userID
func LikesTopic(userID string) string { return "likes:" + userID }

// PartnersTopic carries changes to the pairing records owned by userID
func PartnersTopic(userID string) string { return "partners:" + userID }

// PresenceTopic carries online/offline changes of userID
func PresenceTopic(userID string) string { return "presence:" + userID }

// Feed opens live subscriptions
type Feed interface {
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// Publisher pushes events to a topic
type Publisher interface {
	Publish(topic string, event Event)
}

// Subscription is a scoped handle on one or more topics. It must be closed
// by its consumer; it is also closed when the context passed to Subscribe ends.
type Subscription struct {
	events  chan Event
	done    chan struct{}
	once    sync.Once
	release func(*Subscription)
}

func newSubscription(buffer int, release func(*Subscription)) *Subscription {
	return &Subscription{
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
		release: release,
	}
}

// Events returns the channel of delivered events; it is closed by Close
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed once the subscription has been released
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release(s)
		}
		close(s.done)
		close(s.events)
	})
}

func (s *Subscription) closeOn(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}

// Hub is an in-process topic broker that also tracks which users are online
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	online map[string]int
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		online: make(map[string]int),
	}
}

// Subscribe registers a subscription on topics until Close or ctx ends
func (h *Hub) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := newSubscription(subscriptionBuffer, func(s *Subscription) {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, topic := range topics {
			delete(h.topics[topic], s)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
		}
	})

	h.mu.Lock()
	for _, topic := range topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[*Subscription]struct{})
		}
		h.topics[topic][sub] = struct{}{}
	}
	h.mu.Unlock()

	sub.closeOn(ctx)
	return sub, nil
}

// Publish delivers event to every subscriber of topic. Slow subscribers
// whose buffer is full miss the event rather than blocking the publisher.
func (h *Hub) Publish(topic string, event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.events <- event:
		default:
			log.Warn().
				Str("topic", topic).
				Str("type", event.Type).
				Msg("Dropping event for slow subscriber")
		}
	}
}

// Subscribers returns the number of open subscriptions on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Connect marks userID online until the returned release func is called
func (h *Hub) Connect(userID string) (release func()) {
	h.mu.Lock()
	h.online[userID]++
	first := h.online[userID] == 1
	h.mu.Unlock()

	if first {
		h.publishPresence(userID, true)
	}
	log.Info().Str("user_id", userID).Msg("User connected")

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.online[userID]--
			last := h.online[userID] <= 0
			if last {
				delete(h.online, userID)
			}
			h.mu.Unlock()

			if last {
				h.publishPresence(userID, false)
			}
			log.Info().Str("user_id", userID).Msg("User disconnected")
		})
	}
}

// IsOnline checks if a user has at least one open connection
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

func (h *Hub) publishPresence(userID string, online bool) {
	h.Publish(PresenceTopic(userID), Event{
		Type:   EventPartnerStatus,
		UserID: userID,
		Online: &online,
	})
}

// ScriptedFeed replays a fixed sequence of events per topic to every
// subscriber. It stands in for the Hub where a deterministic source is needed.
type ScriptedFeed struct {
	Script map[string][]Event
}

// Subscribe returns a subscription pre-loaded with the scripted events for topics, in topic order
func (f *ScriptedFeed) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []Event
	for _, topic := range topics {
		events = append(events, f.Script[topic]...)
	}

	sub := newSubscription(len(events)+1, nil)
	for _, event := range events {
		sub.events <- event
	}
	sub.closeOn(ctx)
	return sub, nil
}
