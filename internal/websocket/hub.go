package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub fans events out to subscribed clients. One goroutine owns the
// client set; all membership changes flow through the channels.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	broadcast chan Message

	clients map[*Client]bool
	mu      sync.RWMutex

	totalConnections int64
	messagesSent     int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
		clients:    make(map[*Client]bool),
		stopCh:     make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			atomic.AddInt64(&h.totalConnections, 1)
			logrus.WithField("client_id", client.ID).Debug("websocket client registered")

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.stopCh:
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down. Safe to call repeatedly.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// PublishEvent queues an event for every client subscribed to topic.
// Drops the event when the broadcast queue is full rather than
// blocking a ledger operation.
func (h *Hub) PublishEvent(topic SubscriptionTopic, event string, data interface{}) {
	msg := Message{
		Type:      MessageTypeEvent,
		Topic:     string(topic),
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- msg:
	default:
		logrus.WithField("event", event).Warn("websocket broadcast queue full, event dropped")
	}
}

func (h *Hub) deliver(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.IsSubscribed(msg.Topic) {
			continue
		}
		// Slow consumers are skipped rather than stalling the hub.
		if client.trySend(payload) {
			atomic.AddInt64(&h.messagesSent, 1)
		}
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetSubscriptionCount returns the number of active subscriptions
// across all clients.
func (h *Hub) GetSubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for client := range h.clients {
		total += client.SubscriptionCount()
	}
	return total
}

// GetStats returns hub-level counters.
func (h *Hub) GetStats() ConnectionStats {
	return ConnectionStats{
		TotalConnections: int(atomic.LoadInt64(&h.totalConnections)),
		MessagesSent:     atomic.LoadInt64(&h.messagesSent),
	}
}
