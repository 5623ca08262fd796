package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"livechat-bot/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guildID := strings.TrimPrefix(r.URL.Path, "/ws/")
		_ = hub.Serve(r.Context(), w, r, guildID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, guildID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + guildID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesRoomOnly(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()
	srv := newTestServer(t, hub)

	g1 := dial(t, srv, "g1")
	g2 := dial(t, srv, "g2")
	require.Eventually(t, func() bool {
		return hub.Subscribers("g1") == 1 && hub.Subscribers("g2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload := models.DisplayPayload{
		ID:      7,
		Type:    models.QueueTypeMessage,
		Content: models.MessageOf(models.MessageContent{Text: "salut"}),
		GuildID: "g1",
	}
	require.NoError(t, hub.Publish(context.Background(), "g1", payload))

	require.NoError(t, g1.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := g1.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, EventNewMessage, got.Event)
	assert.EqualValues(t, 7, got.Data["id"])
	assert.Equal(t, "g1", got.Data["discordGuildId"])
	assert.Equal(t, "salut", got.Data["content"].(map[string]any)["text"])

	require.NoError(t, g2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = g2.ReadMessage()
	assert.Error(t, err, "other guilds receive nothing")
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	assert.NoError(t, hub.Publish(context.Background(), "nobody", models.DisplayPayload{Type: models.QueueTypeMessage, Content: models.MessageOf(models.MessageContent{})}))
}

func TestPublishDropsForFullBuffers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := &subscriber{send: make(chan []byte, 1)}
	require.True(t, hub.join("g1", sub))

	p := models.DisplayPayload{Type: models.QueueTypeMessage, Content: models.MessageOf(models.MessageContent{})}
	require.NoError(t, hub.Publish(context.Background(), "g1", p))
	require.NoError(t, hub.Publish(context.Background(), "g1", p))
	assert.Len(t, sub.send, 1)

	hub.leave("g1", sub)
	assert.Zero(t, hub.Subscribers("g1"))
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := newTestServer(t, hub)
	conn := dial(t, srv, "g1")
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return hub.Subscribers("g1") == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, hub.join("g1", &subscriber{}))
}
