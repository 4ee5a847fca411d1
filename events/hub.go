// events/hub.go
package events

import (
	"sync"

	"github.com/plumecms/plume-server/domain"
)

const (
	PostCreated = "post_created"
	PostUpdated = "post_updated"
	PostDeleted = "post_deleted"
)

type Event struct {
	Type string       `json:"type"`
	Post *domain.Post `json:"post,omitempty"`
}

// Hub fans content events out to in-process subscribers.
type Hub struct {
	subscribers map[chan Event]bool
	broadcast   chan Event
	subscribe   chan chan Event
	unsubscribe chan chan Event
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]bool),
		broadcast:   make(chan Event, 256),
		subscribe:   make(chan chan Event),
		unsubscribe: make(chan chan Event),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case ch := <-h.subscribe:
			h.mu.Lock()
			h.subscribers[ch] = true
			h.mu.Unlock()

		case ch := <-h.unsubscribe:
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.subscribers {
				select {
				case ch <- ev:
				default: // slow subscriber, drop rather than stall the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Publish(eventType string, post *domain.Post) {
	h.broadcast <- Event{Type: eventType, Post: post}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.subscribe <- ch
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.unsubscribe <- ch
}
