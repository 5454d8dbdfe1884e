package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"swipe-match-backend/internal/middleware"
	"swipe-match-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client message types
const (
	MessageLike   = "like"
	MessageViewed = "viewed"
	MessagePing   = "ping"
)

// ClientMessage is a message sent by the client over the live connection
type ClientMessage struct {
	Type   string `json:"type"`
	CardID string `json:"card_id,omitempty"`
}

// Presence tracks connected users
type Presence interface {
	Connect(userID string) (release func())
	IsOnline(userID string) bool
}

// WebSocketHandler streams a partner's activity to a connected user
type WebSocketHandler struct {
	feed           services.Feed
	presence       Presence
	validator      middleware.TokenValidator
	pairingService *services.PairingService
	matchService   *services.MatchService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	feed services.Feed,
	presence Presence,
	validator middleware.TokenValidator,
	pairingService *services.PairingService,
	matchService *services.MatchService,
) *WebSocketHandler {
	return &WebSocketHandler{
		feed:           feed,
		presence:       presence,
		validator:      validator,
		pairingService: pairingService,
		matchService:   matchService,
	}
}

// HandleWebSocket handles GET /ws?token=...&partner_id=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	partnerID := r.URL.Query().Get("partner_id")
	if partnerID == "" {
		respondError(w, "partner_id required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if _, err := h.pairingService.RequireAccepted(ctx, userID, partnerID); err != nil {
		respondServiceError(w, err)
		return
	}

	sub, err := h.feed.Subscribe(ctx,
		services.LikesTopic(partnerID),
		services.PartnersTopic(userID),
		services.PresenceTopic(partnerID),
	)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to subscribe to live feed")
		respondError(w, "Failed to open live feed", http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	release := h.presence.Connect(userID)
	defer release()

	log.Info().
		Str("user_id", userID).
		Str("partner_id", partnerID).
		Msg("WebSocket connection established")

	online := h.presence.IsOnline(partnerID)
	replies := make(chan services.Event, 8)
	replies <- services.Event{
		Type:   services.EventPartnerStatus,
		UserID: partnerID,
		Online: &online,
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, sub, replies)
		// unblocks readLoop when the writer gives up first
		conn.Close()
	}()

	h.readLoop(ctx, conn, userID, partnerID, replies)
	cancel()
	<-writerDone

	log.Info().Str("user_id", userID).Msg("WebSocket connection closed")
}

// writeLoop owns every write to conn until the feed or the connection ends
func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *services.Subscription, replies <-chan services.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case event := <-replies:
			if err := writeEvent(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop handles client messages until the connection closes
func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, userID, partnerID string, replies chan<- services.Event) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.reply(ctx, replies, services.Event{Type: services.EventError, Message: "Invalid message format"})
			continue
		}

		if err := h.handleMessage(ctx, userID, partnerID, msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			message, _ := describe(err)
			h.reply(ctx, replies, services.Event{Type: services.EventError, Message: message})
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID, partnerID string, msg ClientMessage) error {
	switch msg.Type {
	case MessageLike:
		return h.matchService.RecordLike(ctx, userID, msg.CardID)
	case MessageViewed:
		return h.matchService.MarkViewed(ctx, userID, partnerID, msg.CardID)
	case MessagePing:
		return nil
	default:
		return fmt.Errorf("%w: unknown message type %q", services.ErrInvalidInput, msg.Type)
	}
}

func (h *WebSocketHandler) reply(ctx context.Context, replies chan<- services.Event, event services.Event) {
	select {
	case replies <- event:
	case <-ctx.Done():
	}
}

func writeEvent(conn *websocket.Conn, event services.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode event")
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
