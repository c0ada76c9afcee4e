package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TopicOrders carries every order change; staff boards subscribe to it.
const TopicOrders = "orders"

// OrderTopic is the per-order topic guest tracking pages subscribe to.
func OrderTopic(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// topicEvent routes an event to the clients of one topic
type topicEvent struct {
	Topic string
	Event Event
}

// directEvent targets a single client
type directEvent struct {
	Client *Client
	Event  Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *topicEvent
	direct    chan *directEvent

	// In-process listeners by topic, fed alongside the sockets
	watchers map[string]map[chan Event]struct{}

	// Closed when Run returns so late senders don't block
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
		direct:     make(chan *directEvent, 256),
		watchers:   make(map[string]map[chan Event]struct{}),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for topic, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, topic)
			}
			for topic, chans := range h.watchers {
				for ch := range chans {
					close(ch)
				}
				delete(h.watchers, topic)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[event.Topic] {
				h.deliverLocked(client, message)
			}
			for ch := range h.watchers[event.Topic] {
				select {
				case ch <- event.Event:
				default:
				}
			}
			h.mu.Unlock()

		case d := <-h.direct:
			message, err := json.Marshal(d.Event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			if h.rooms[d.Client.topic][d.Client] {
				h.deliverLocked(d.Client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliverLocked drops a client whose send buffer is full.
func (h *Hub) deliverLocked(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.removeLocked(client)
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.topic]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.topic)
	}
}

// Broadcast sends an event to all clients subscribed to topic.
func (h *Hub) Broadcast(topic string, event Event) {
	select {
	case h.broadcast <- &topicEvent{Topic: topic, Event: event}:
	case <-h.done:
	}
}

// SendTo delivers an event to one client if it is still connected.
func (h *Hub) SendTo(client *Client, event Event) {
	select {
	case h.direct <- &directEvent{Client: client, Event: event}:
	case <-h.done:
	}
}

// Watch registers an in-process listener for the events broadcast on topic.
// Events are dropped when the listener falls behind. The channel is closed
// by stop or when the hub shuts down.
func (h *Hub) Watch(topic string) (events <-chan Event, stop func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	if h.watchers[topic] == nil {
		h.watchers[topic] = make(map[chan Event]struct{})
	}
	h.watchers[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.watchers[topic][ch]; !ok {
				return
			}
			delete(h.watchers[topic], ch)
			if len(h.watchers[topic]) == 0 {
				delete(h.watchers, topic)
			}
			close(ch)
		})
	}
}

// ClientCount reports how many clients are subscribed to topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}
