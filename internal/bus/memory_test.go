package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *InMemoryBus {
	return NewInMemoryBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInMemoryBusDeliversToAllSubscribers(t *testing.T) {
	b := newTestBus()

	var first, second map[string]string
	b.Subscribe("topic", func(ctx context.Context, payload []byte) error {
		return json.Unmarshal(payload, &first)
	})
	b.Subscribe("topic", func(ctx context.Context, payload []byte) error {
		return json.Unmarshal(payload, &second)
	})

	require.NoError(t, b.Publish(context.Background(), "topic", map[string]string{"k": "v"}))
	assert.Equal(t, "v", first["k"])
	assert.Equal(t, "v", second["k"])
}

func TestInMemoryBusFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := newTestBus()

	wantErr := errors.New("handler broke")
	var delivered bool
	b.Subscribe("topic", func(ctx context.Context, payload []byte) error {
		return wantErr
	})
	b.Subscribe("topic", func(ctx context.Context, payload []byte) error {
		delivered = true
		return nil
	})

	err := b.Publish(context.Background(), "topic", "msg")
	assert.ErrorIs(t, err, wantErr)
	assert.True(t, delivered, "later subscribers still receive the message")
}

func TestInMemoryBusNoSubscribers(t *testing.T) {
	b := newTestBus()
	assert.NoError(t, b.Publish(context.Background(), "empty", "msg"))
}

func TestInMemoryBusTopicIsolation(t *testing.T) {
	b := newTestBus()

	var called bool
	b.Subscribe("a", func(ctx context.Context, payload []byte) error {
		called = true
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "b", "msg"))
	assert.False(t, called)
}
