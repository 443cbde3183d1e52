package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// delivery is either a fan-out from one session to every other session
// (to == nil) or a direct reply to a single session.
type delivery struct {
	from *Client
	to   *Client
	data []byte
}

// Hub owns the set of connected sessions and is the only writer to their
// send channels.
type Hub struct {
	clients map[*Client]struct{}
	rooms   *RoomRegistry
	log     *slog.Logger

	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	done       chan struct{}

	sessions atomic.Int64
}

func NewHub(rooms *RoomRegistry, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      rooms,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Stopping hub")
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			n := h.sessions.Add(1)
			h.log.Info(fmt.Sprintf("+1 session (=%d)", n), "session", client.ID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Info(fmt.Sprintf("-1 session (=%d)", h.sessions.Load()), "session", client.ID)
			}

		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

func (h *Hub) deliver(d delivery) {
	if d.to != nil {
		if _, ok := h.clients[d.to]; ok {
			h.push(d.to, d.data)
		}
		return
	}

	for client := range h.clients {
		if client == d.from {
			continue
		}
		h.push(client, d.data)
	}
}

// push never blocks: a session that cannot keep up is disconnected
func (h *Hub) push(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("Dropping slow session", "session", client.ID)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.rooms.Leave(client.ID)
	h.sessions.Add(-1)
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues data for every session except from
func (h *Hub) Broadcast(from *Client, data []byte) {
	select {
	case h.deliveries <- delivery{from: from, data: data}:
	case <-h.done:
	}
}

func (h *Hub) SendTo(to *Client, data []byte) {
	select {
	case h.deliveries <- delivery{to: to, data: data}:
	case <-h.done:
	}
}

// Sessions returns the number of connected sessions
func (h *Hub) Sessions() int {
	return int(h.sessions.Load())
}
