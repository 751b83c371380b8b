// Package websocket pushes panel events to connected browsers. Every client
// belongs to one session and only receives that session's events unless a
// message is broadcast to all.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// delivery is a message queued for the clients of one session, or for
// every client when sessionID is empty.
type delivery struct {
	sessionID string
	data      []byte
}

// Hub maintains the set of active WebSocket clients and routes messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done. All
// remaining clients are disconnected on return, and later calls to
// Register, Unregister and the send methods no longer block.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("websocket client connected", "session", client.sessionID, "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			slog.Debug("websocket client disconnected", "session", client.sessionID, "total", n)

		case d := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if d.sessionID != "" && client.sessionID != d.sessionID {
					continue
				}
				select {
				case client.send <- d.data:
				default:
					// Slow client; drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(message []byte) {
	h.enqueue(delivery{data: message})
}

// SendTo queues a message for the clients of one session.
func (h *Hub) SendTo(sessionID string, message []byte) {
	if sessionID == "" {
		return
	}
	h.enqueue(delivery{sessionID: sessionID, data: message})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.broadcast <- d:
	case <-h.done:
	default:
		slog.Warn("websocket broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub. Once the hub has stopped the
// client's send channel is closed straight away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub. It is a no-op once the hub
// has stopped, since stopping closes every client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client represents a WebSocket client connection.
type Client struct {
	sessionID string
	send      chan []byte
}

// NewClient creates a client of the given session.
func NewClient(sessionID string) *Client {
	return &Client{
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// SessionID returns the session the client belongs to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Send returns the channel of messages to write to the connection. It is
// closed when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}
