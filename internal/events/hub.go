// Package events pushes cache invalidations from the API to connected
// dashboards over a websocket, scoped per user.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType names a feed message.
type MessageType string

const (
	MessageTypeHello      MessageType = "hello"
	MessageTypeInvalidate MessageType = "invalidate"
)

// Message is one frame of the feed.
type Message struct {
	Type      MessageType `json:"type"`
	Keys      []string    `json:"keys,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type subscriber struct {
	userID string
	send   chan Message
}

// Hub fans invalidation messages out to the subscribers of each user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *slog.Logger
	buffer int
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{subs: map[*subscriber]struct{}{}, logger: logger, buffer: 32}
}

// Publish queues an invalidation of keys for every subscriber of userID.
// Slow subscribers drop messages rather than block the publisher.
func (h *Hub) Publish(userID string, keys ...string) {
	if len(keys) == 0 {
		return
	}
	msg := Message{Type: MessageTypeInvalidate, Keys: keys, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.send <- msg:
		default:
			h.logger.Warn("event subscriber is slow, dropping message", slog.String("user", userID))
		}
	}
}

// Subscribers returns the number of open subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for sub := range h.subs {
		if sub.userID == userID {
			n++
		}
	}
	return n
}

func (h *Hub) subscribe(userID string) *subscriber {
	sub := &subscriber{userID: userID, send: make(chan Message, h.buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Serve upgrades the request to a websocket and streams userID's messages
// until the client goes away or ctx ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, originPatterns []string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe(userID)
	defer h.unsubscribe(sub)

	// CloseRead discards client frames and cancels ctx once the peer closes.
	ctx := conn.CloseRead(r.Context())

	if err := write(ctx, conn, Message{Type: MessageTypeHello, Timestamp: time.Now().UTC()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-sub.send:
			if err := write(ctx, conn, msg); err != nil {
				h.logger.Debug("event write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
