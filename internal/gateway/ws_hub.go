package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// EventSource yields the serialized trade events published for one user.
type EventSource interface {
	Stream(ctx context.Context, userID uuid.UUID) (<-chan []byte, error)
}

type userEvent struct {
	userID uuid.UUID
	data   []byte
}

// Hub keeps one event stream per connected user and fans its payloads out to
// every socket that user has open. All client bookkeeping happens in Run.
type Hub struct {
	users         map[uuid.UUID]map[*Client]bool
	streamCancels map[uuid.UUID]context.CancelFunc

	register   chan *Client
	unregister chan *Client
	broadcast  chan userEvent
	done       chan struct{}

	source EventSource
	logger *slog.Logger
}

func NewHub(source EventSource, logger *slog.Logger) *Hub {
	return &Hub{
		users:         make(map[uuid.UUID]map[*Client]bool),
		streamCancels: make(map[uuid.UUID]context.CancelFunc),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		broadcast:     make(chan userEvent, 256),
		done:          make(chan struct{}),
		source:        source,
		logger:        logger,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			clients, ok := h.users[client.userID]
			if !ok {
				clients = make(map[*Client]bool)
				h.users[client.userID] = clients
				streamCtx, cancel := context.WithCancel(ctx)
				h.streamCancels[client.userID] = cancel
				go h.pumpEvents(streamCtx, client.userID)
			}
			clients[client] = true
		case client := <-h.unregister:
			h.remove(client)
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// enter hands a client to Run. It reports false once the hub has stopped.
func (h *Hub) enter(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.users[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		if cancel, ok := h.streamCancels[client.userID]; ok {
			cancel()
			delete(h.streamCancels, client.userID)
		}
		delete(h.users, client.userID)
	}
}

func (h *Hub) closeAll() {
	for userID, clients := range h.users {
		for client := range clients {
			close(client.send)
		}
		if cancel, ok := h.streamCancels[userID]; ok {
			cancel()
		}
	}
	h.users = make(map[uuid.UUID]map[*Client]bool)
	h.streamCancels = make(map[uuid.UUID]context.CancelFunc)
}

func (h *Hub) pumpEvents(ctx context.Context, userID uuid.UUID) {
	stream, err := h.source.Stream(ctx, userID)
	if err != nil {
		h.logger.Error("subscribe trade events failed", "user_id", userID, "err", err)
		return
	}
	for data := range stream {
		select {
		case h.broadcast <- userEvent{userID: userID, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) fanOut(ev userEvent) {
	for client := range h.users[ev.userID] {
		select {
		case client.send <- ev.data:
		default:
			h.logger.Warn("dropping trade event for slow client", "user_id", ev.userID)
		}
	}
}
