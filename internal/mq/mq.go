package mq

import (
	"context"
	"encoding/json"
	"time"
)

// RegisteredChannel carries resident registration events for downstream
// consumers (house-manager notifications, reporting).
const RegisteredChannel = "residents.registered"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// RegisteredEvent is published after a resident's User+Resident pair is
// committed.
type RegisteredEvent struct {
	UserID       string    `json:"user_id"`
	ExternalID   string    `json:"external_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Events wraps a backend with the app's typed publish operations.
type Events struct {
	backend Backend
}

// NewEvents constructs an Events wrapper for the provided backend.
func NewEvents(backend Backend) *Events {
	return &Events{backend: backend}
}

// PublishRegistered announces a completed registration.
func (e *Events) PublishRegistered(ctx context.Context, event RegisteredEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return e.backend.Publish(ctx, RegisteredChannel, data, map[string]string{
		"type": "resident.registered",
	})
}

// SubscribeRegistered consumes registration events from the channel.
func (e *Events) SubscribeRegistered(ctx context.Context, handler Handler) error {
	return e.backend.Subscribe(ctx, RegisteredChannel, handler)
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	return e.backend.Close()
}
