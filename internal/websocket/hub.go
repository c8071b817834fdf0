package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is pushed to every board watching a place
type Event struct {
	Type   string      `json:"type"`
	Place  string      `json:"place"`
	Data   interface{} `json:"data,omitempty"`
	SentAt time.Time   `json:"sentAt"`
}

type envelope struct {
	place   string
	payload []byte
}

// Hub maintains the set of active clients per place and broadcasts events
type Hub struct {
	// Registered clients: place -> set
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope

	// Closed when Run returns
	done chan struct{}

	log *zap.Logger

	// Guards clients for readers outside Run
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing all
// client send channels.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for place, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, place)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.Place]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.Place] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("board connected", zap.String("client", client.ID), zap.String("place", client.Place))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.place] {
				select {
				case c.send <- msg.payload:
				default:
					// Buffer full or client dead
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join registers c unless the hub has stopped
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c. After shutdown there is nothing left to unregister.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// remove must be called with mu held
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.Place]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.Place)
	}
	h.log.Debug("board disconnected", zap.String("client", c.ID), zap.String("place", c.Place))
}

// Publish queues an event for every client watching place. It never blocks;
// when the hub is saturated the event is dropped and false returned.
func (h *Hub) Publish(place, eventType string, data interface{}) bool {
	payload, err := json.Marshal(Event{Type: eventType, Place: place, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		h.log.Error("marshal board event", zap.String("type", eventType), zap.Error(err))
		return false
	}
	select {
	case h.broadcast <- envelope{place: place, payload: payload}:
		return true
	default:
		h.log.Warn("board event dropped, hub saturated", zap.String("type", eventType), zap.String("place", place))
		return false
	}
}

// ClientCount returns the number of boards watching place
func (h *Hub) ClientCount(place string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[place])
}
