package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one websocket connection and its subscription set.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn

	// send carries outbound payloads to WritePump. sendMu serializes
	// queueing against the hub closing the channel at shutdown.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	userAddress string

	subscriptions map[string]bool
	subMu         sync.RWMutex
}

// NewClient creates a new client
func NewClient(conn *websocket.Conn, hub *Hub, id string) *Client {
	return &Client{
		ID:            id,
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 32),
		subscriptions: make(map[string]bool),
	}
}

// SetAuth records the authenticated wallet behind this connection.
func (c *Client) SetAuth(address string) {
	c.userAddress = address
}

// IsSubscribed reports whether the client listens on topic.
func (c *Client) IsSubscribed(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscriptions[topic]
}

// SubscriptionCount returns the number of topics the client follows.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// ReadPump consumes client messages until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("client_id", c.ID).Debug("websocket read error")
			}
			return
		}
		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var req SubscriptionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError("invalid message")
		return
	}

	switch req.Type {
	case MessageTypeSubscribe:
		if !validTopic(req.Topic) {
			c.sendError("unknown topic: " + req.Topic)
			return
		}
		c.subMu.Lock()
		c.subscriptions[req.Topic] = true
		c.subMu.Unlock()
		c.sendMessage(Message{Type: MessageTypeSubscriptionConfirmed, Topic: req.Topic, Timestamp: time.Now()})

	case MessageTypeUnsubscribe:
		c.subMu.Lock()
		delete(c.subscriptions, req.Topic)
		c.subMu.Unlock()

	case MessageTypePing:
		c.sendMessage(Message{Type: MessageTypePong, Timestamp: time.Now()})

	default:
		c.sendError("unsupported message type")
	}
}

func validTopic(topic string) bool {
	switch SubscriptionTopic(topic) {
	case TopicPools, TopicDeposits, TopicBorrows, TopicRaffles:
		return true
	}
	return false
}

func (c *Client) sendMessage(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(payload)
}

// trySend queues payload without blocking. Returns false when the
// client is slow or its send channel is already closed.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once, after which trySend
// drops payloads instead of panicking on the closed channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *Client) sendError(text string) {
	c.sendMessage(Message{Type: MessageTypeError, Error: text, Timestamp: time.Now()})
}

// WritePump drains the send channel onto the wire and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
