// Package stream pushes stock update events to websocket clients. It is a
// read-only view fed by the stock update subscriber.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/frahmantamala/shopbot-engine/internal/stocknotify"
)

const sendBuffer = 32

// Message is the frame written to clients.
type Message struct {
	Type string            `json:"type"`
	Data stocknotify.Event `json:"data"`
}

type Client struct {
	// ProductIDs restricts delivery; empty means every product.
	ProductIDs map[int64]bool
	Send       chan []byte
}

func NewClient(productIDs ...int64) *Client {
	c := &Client{ProductIDs: map[int64]bool{}, Send: make(chan []byte, sendBuffer)}
	for _, id := range productIDs {
		c.ProductIDs[id] = true
	}
	return c
}

func (c *Client) wants(productID int64) bool {
	return len(c.ProductIDs) == 0 || c.ProductIDs[productID]
}

// Hub tracks connected clients. Slow clients whose buffer fills are dropped
// rather than allowed to stall the subscriber.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[*Client]bool), logger: logger}
}

// UpdateSource is satisfied by *stocknotify.Subscriber.
type UpdateSource interface {
	SubscribeToUpdates(cb stocknotify.Callback) (unsubscribe func())
}

// Attach feeds the hub from src.
func (h *Hub) Attach(src UpdateSource) (detach func()) {
	return src.SubscribeToUpdates(h.Broadcast)
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.logger.Debug("stream client registered", "clients", len(h.clients))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		h.logger.Debug("stream client unregistered", "clients", len(h.clients))
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast is a stocknotify.Callback.
func (h *Hub) Broadcast(_ context.Context, event stocknotify.Event) {
	frame, err := json.Marshal(Message{Type: "stock_update", Data: event})
	if err != nil {
		h.logger.Error("failed to encode stream frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.wants(event.ProductID) {
			continue
		}
		select {
		case c.Send <- frame:
		default:
			h.logger.Warn("stream client too slow, dropping", "product_id", event.ProductID)
			h.remove(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}
