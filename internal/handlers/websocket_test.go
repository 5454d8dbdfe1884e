package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"swipe-match-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) dial(t *testing.T, token, partnerID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token + "&partner_id=" + partnerID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) services.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event services.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestWebSocketRequiresAcceptedPartner(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := srv.signIn(t, "a")
	srv.signIn(t, "b")

	_, resp, err := srv.dial(t, "", "b")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = srv.dial(t, tokenA, "b")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketStreamsPartnerActivity(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := srv.signIn(t, "a")
	tokenB, codeB := srv.signIn(t, "b")

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": codeB})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = srv.do(t, http.MethodPost, "/api/v1/partners/a/accept", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := srv.do(t, http.MethodGet, "/api/v1/cards", tokenA, nil)
	cardID := body["cards"].([]any)[0].(map[string]any)["id"].(string)

	connA, _, err := srv.dial(t, tokenA, "b")
	require.NoError(t, err)
	defer connA.Close()

	status := readEvent(t, connA)
	assert.Equal(t, services.EventPartnerStatus, status.Type)
	require.NotNil(t, status.Online)
	assert.False(t, *status.Online)

	connB, _, err := srv.dial(t, tokenB, "a")
	require.NoError(t, err)
	defer connB.Close()

	online := readEvent(t, connA)
	assert.Equal(t, services.EventPartnerStatus, online.Type)
	require.NotNil(t, online.Online)
	assert.True(t, *online.Online)

	// B likes over the socket; A sees it live.
	require.NoError(t, connB.WriteJSON(ClientMessage{Type: MessageLike, CardID: cardID}))
	liked := readEvent(t, connA)
	assert.Equal(t, services.EventPartnerLiked, liked.Type)
	assert.Equal(t, "b", liked.UserID)
	assert.Equal(t, cardID, liked.CardID)

	// A completes the match.
	require.NoError(t, connA.WriteJSON(ClientMessage{Type: MessageLike, CardID: cardID}))
	match := readEvent(t, connA)
	assert.Equal(t, services.EventMatch, match.Type)
	assert.Equal(t, "b", match.UserID)

	require.NoError(t, connA.WriteJSON(ClientMessage{Type: "dance"}))
	failure := readEvent(t, connA)
	assert.Equal(t, services.EventError, failure.Type)
	assert.NotEmpty(t, failure.Message)
}
