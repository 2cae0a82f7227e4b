package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryBus is a Bus implementation that dispatches messages to
// subscribers registered in the same process, synchronously with the
// publish call.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   *slog.Logger
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus(logger *slog.Logger) *InMemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryBus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger.With("component", "in_memory_bus"),
	}
}

// Ensure InMemoryBus implements the Bus interface
var _ Bus = (*InMemoryBus)(nil)

// Subscribe implements Bus.Subscribe.
func (b *InMemoryBus) Subscribe(topic string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	b.logger.Debug("registered subscriber", "topic", topic, "handler_count", len(b.handlers[topic]))
}

// Publish implements Bus.Publish. Every subscriber receives the message
// even when an earlier one fails; the first error encountered is returned.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message for topic %q: %w", topic, err)
	}

	b.mu.RLock()
	handlers := make([]HandlerFunc, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for topic", "topic", topic)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler(ctx, payload); err != nil {
			b.logger.Error("subscriber failed to process message",
				"error", err,
				"handler_index", i,
				"topic", topic)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
