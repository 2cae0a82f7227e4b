package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/taskboard/taskboard-api/internal/bus"
)

// RedisBus implements the bus.Bus interface on redis pub/sub, letting
// event subscribers run in other processes. Handlers for each topic run
// in a single goroutine per topic, in arrival order.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string][]bus.HandlerFunc
	subs     []*redis.PubSub
	wg       sync.WaitGroup
	closed   bool
}

// NewRedisBus creates a RedisBus. The caller owns the client lifecycle
// but must Close the bus before closing the client.
func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client:   client,
		logger:   logger.With(slog.String("component", "redis_bus")),
		handlers: make(map[string][]bus.HandlerFunc),
	}
}

var _ bus.Bus = (*RedisBus)(nil)

// Publish serializes message and delivers it to the topic's subscribers.
func (b *RedisBus) Publish(ctx context.Context, topic string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message for topic %s: %w", topic, err)
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for every message published to topic. The
// first handler on a topic opens the underlying redis subscription.
func (b *RedisBus) Subscribe(topic string, handler bus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	first := len(b.handlers[topic]) == 0
	b.handlers[topic] = append(b.handlers[topic], handler)
	if !first {
		return
	}

	sub := b.client.Subscribe(context.Background(), topic)
	b.subs = append(b.subs, sub)

	b.wg.Add(1)
	go b.consume(topic, sub)
}

// consume dispatches messages for one topic until the subscription closes.
// Handler errors are logged, not retried; delivery is at-least-once only
// across process restarts, not per message.
func (b *RedisBus) consume(topic string, sub *redis.PubSub) {
	defer b.wg.Done()
	for msg := range sub.Channel() {
		b.mu.Lock()
		handlers := append([]bus.HandlerFunc(nil), b.handlers[topic]...)
		b.mu.Unlock()

		for _, handler := range handlers {
			if err := handler(context.Background(), []byte(msg.Payload)); err != nil {
				b.logger.Error("event handler failed",
					"topic", topic,
					"error", err)
			}
		}
	}
}

// Close tears down all subscriptions and waits for in-flight handlers.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.wg.Wait()
	return firstErr
}
