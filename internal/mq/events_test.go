package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (f *fakeBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.channel = channel
	f.data = data
	f.attrs = attrs
	return "msg-1", nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func TestPublishRegistered(t *testing.T) {
	backend := &fakeBackend{}
	events := NewEvents(backend)

	registeredAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := events.PublishRegistered(context.Background(), RegisteredEvent{
		UserID:       "id-1",
		ExternalID:   "user_2x",
		Name:         "A B",
		Email:        "x@y.com",
		RegisteredAt: registeredAt,
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, RegisteredChannel, backend.channel)
	assert.Equal(t, "resident.registered", backend.attrs["type"])

	var event RegisteredEvent
	require.NoError(t, json.Unmarshal(backend.data, &event))
	assert.Equal(t, "x@y.com", event.Email)
	assert.True(t, event.RegisteredAt.Equal(registeredAt))
}
