package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"go-video-hub/internal/event"
)

// Hub relays bus events to every connected admin console. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	bus        event.Bus
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	connected  atomic.Int64

	recheckEvery time.Duration
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		bus:        bus,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),

		recheckEvery: defaultRecheck,
	}
}

// Connected reports how many consoles are attached.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer func() {
		unsubscribe()
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.connected.Add(1)
			slog.Debug("audit feed client attached", "user_id", client.userID)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e event.Event) {
	if len(h.clients) == 0 {
		return
	}
	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "type", e.Type, "error", err)
		return
	}
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slog.Warn("audit feed client too slow, disconnecting", "user_id", client.userID)
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.connected.Add(-1)
}

// attach hands a client to Run; it reports false once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
