package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/princedesai012/Doc-Flow/internal/model"
	"github.com/princedesai012/Doc-Flow/internal/notify"
)

// Package ws is the realtime sync channel for dashboard observers. The hub
// pushes every request mutation to all connected observers; it keeps no
// history, so late joiners catch up by polling the list endpoint.

// Event is the wire format pushed to observers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventRequestUpdated = "request_updated"
	EventRequestDeleted = "request_deleted"
	EventGatewayStatus  = "gateway_status"
)

// Hub maintains the set of connected observers and fans events out to them.
// Slow observers are dropped rather than buffered indefinitely.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	log *slog.Logger

	mu          sync.RWMutex
	clients     map[*Client]struct{}
	lastGateway []byte
}

// NewHub creates a hub. Run must be started before handlers attach clients.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]struct{}),
		log:        log,
	}
}

// Run processes register/unregister/broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			replay := h.lastGateway
			n := len(h.clients)
			h.mu.Unlock()
			// New observers immediately learn the gateway state; request
			// state is pulled via the list endpoint.
			if replay != nil {
				c.trySend(replay)
			}
			h.log.Info("observer connected", "observers", n)

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				if !c.trySend(msg) {
					// Observer cannot keep up; disconnect it and let it
					// re-join with a fresh snapshot.
					h.drop(c)
				}
			}
		}
	}
}

// RequestUpdated pushes the full updated request to every observer.
func (h *Hub) RequestUpdated(req *model.Request) {
	h.publish(Event{Type: EventRequestUpdated, Payload: req})
}

// RequestDeleted announces a hard delete by id.
func (h *Hub) RequestDeleted(id string) {
	h.publish(Event{Type: EventRequestDeleted, Payload: map[string]string{"id": id}})
}

// GatewayStatusChanged implements notify.StatusEvents. The latest status is
// retained and replayed to observers on connect.
func (h *Hub) GatewayStatusChanged(status notify.GatewayStatus, qrDataURL string) {
	payload := map[string]string{"status": string(status)}
	if qrDataURL != "" {
		payload["qr"] = qrDataURL
	}
	msg, err := json.Marshal(Event{Type: EventGatewayStatus, Payload: payload})
	if err != nil {
		return
	}
	h.mu.Lock()
	h.lastGateway = msg
	h.mu.Unlock()
	h.enqueue(msg)
}

func (h *Hub) publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", "type", ev.Type, "error", err)
		return
	}
	h.enqueue(msg)
}

func (h *Hub) enqueue(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		// Broadcast backlog full; observers are eventually consistent and
		// can re-poll, so dropping is safe.
		h.log.Warn("broadcast backlog full, dropping event")
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.close()
		h.log.Info("observer disconnected", "observers", n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
