package websocket

import "time"

// MessageType represents different types of WebSocket messages
type MessageType string

const (
	MessageTypeSubscribe             MessageType = "subscribe"
	MessageTypeSubscriptionConfirmed MessageType = "subscription_confirmed"
	MessageTypeUnsubscribe           MessageType = "unsubscribe"
	MessageTypeEvent                 MessageType = "event"
	MessageTypeError                 MessageType = "error"
	MessageTypePing                  MessageType = "ping"
	MessageTypePong                  MessageType = "pong"
)

// SubscriptionTopic represents different subscription topics
type SubscriptionTopic string

const (
	TopicPools    SubscriptionTopic = "pools"
	TopicDeposits SubscriptionTopic = "deposits"
	TopicBorrows  SubscriptionTopic = "borrows"
	TopicRaffles  SubscriptionTopic = "raffles"
)

// Event names pushed on the feed.
const (
	EventPoolCreated   = "pool_created"
	EventDeposit       = "deposit"
	EventWithdraw      = "withdraw"
	EventBorrow        = "borrow"
	EventRepay         = "repay"
	EventRaffleStarted = "raffle_started"
	EventRaffleFunded  = "raffle_funded"
	EventRaffleDrawn   = "raffle_drawn"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Event     string      `json:"event,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

// SubscriptionRequest is a client's subscribe/unsubscribe message.
type SubscriptionRequest struct {
	Type  MessageType `json:"type"`
	Topic string      `json:"topic"`
}

// ConnectionStats represents WebSocket connection statistics
type ConnectionStats struct {
	TotalConnections   int       `json:"total_connections"`
	ActiveConnections  int       `json:"active_connections"`
	TotalSubscriptions int       `json:"total_subscriptions"`
	MessagesSent       int64     `json:"messages_sent"`
	LastUpdate         time.Time `json:"last_update"`
}
