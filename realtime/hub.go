package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"livechat-bot/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventNewMessage is emitted for every dispatched item.
const EventNewMessage = "new-message"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Envelope is the frame sent to display clients.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type subscriber struct {
	send chan []byte
}

// Hub fans dispatched items out to the websocket clients of each guild.
// Delivery is fire-and-forget: a client whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscriber]struct{}
	closed bool
	done   chan struct{}

	upgrader websocket.Upgrader
	buffer   int
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*subscriber]struct{}),
		done:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 12,
			// Display clients are browser sources served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		buffer: 16,
		log:    log.With().Str("component", "realtime").Logger(),
	}
}

// Publish sends payload to every subscriber of guildID.
func (h *Hub) Publish(_ context.Context, guildID string, payload models.DisplayPayload) error {
	msg, err := json.Marshal(Envelope{Event: EventNewMessage, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for sub := range h.rooms[guildID] {
		select {
		case sub.send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn().Str("guild", guildID).Int("dropped", dropped).Msg("slow display clients skipped an event")
	}
	return nil
}

// Subscribers counts the clients connected to guildID.
func (h *Hub) Subscribers(guildID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[guildID])
}

// Serve upgrades the request and streams guildID's events until the client
// leaves, ctx is done or the hub closes.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, guildID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrading websocket: %w", err)
	}
	defer conn.Close()

	sub := &subscriber{send: make(chan []byte, h.buffer)}
	if !h.join(guildID, sub) {
		return nil
	}
	defer h.leave(guildID, sub)
	h.log.Debug().Str("guild", guildID).Str("remote", r.RemoteAddr).Msg("display client connected")

	// Reads only serve to notice the client going away and to handle pongs.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(1 << 10)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-gone:
			return nil
		case <-ctx.Done():
			return nil
		case <-h.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
			return nil
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

func (h *Hub) join(guildID string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	room, ok := h.rooms[guildID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[guildID] = room
	}
	room[sub] = struct{}{}
	return true
}

func (h *Hub) leave(guildID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[guildID]
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, guildID)
	}
}
