// Package queue defines the durable job queue contract consumed by the
// service layer: named queues, delayed execution, bounded retry with
// exponential backoff, and registered processors. Delivery is
// at-least-once; processors must be idempotent or tolerate duplicates.
package queue

import (
	"context"
	"time"
)

// Queue names used across the application.
const (
	QueueCreateNotification  = "createNotification"
	QueueCreateNotifications = "createNotifications"
	QueueTaskCleanup         = "cleanupTaskResources"
	QueueDueDateReminder     = "sendDueDateReminder"
)

// Default retry policy applied when a job does not override it.
const (
	DefaultAttempts    = 3
	DefaultBackoffBase = time.Second
)

// ProcessorFunc handles one job's payload. A returned error triggers the
// queue's retry mechanism; after the configured attempts are exhausted the
// failure is recorded, not silently dropped.
type ProcessorFunc func(ctx context.Context, payload []byte) error

// JobOptions carries per-job scheduling parameters.
type JobOptions struct {
	// Delay postpones the first execution attempt.
	Delay time.Duration

	// Attempts bounds the number of execution attempts (including the
	// first). Zero means DefaultAttempts.
	Attempts int

	// Priority orders jobs within a queue. Jobs with priority above zero
	// are drained before regular ones; the in-process runner keeps them
	// in a separate buffer that workers poll first.
	Priority int
}

// JobOption configures one enqueued job.
type JobOption func(*JobOptions)

// WithDelay postpones the job's first execution attempt.
func WithDelay(d time.Duration) JobOption {
	return func(o *JobOptions) { o.Delay = d }
}

// WithAttempts bounds the job's execution attempts.
func WithAttempts(n int) JobOption {
	return func(o *JobOptions) { o.Attempts = n }
}

// WithPriority sets the job's priority.
func WithPriority(p int) JobOption {
	return func(o *JobOptions) { o.Priority = p }
}

// Queue is the durable job queue contract. Payloads are JSON-serialized.
type Queue interface {
	// Enqueue schedules payload for processing on the named queue.
	Enqueue(ctx context.Context, queue string, payload any, opts ...JobOption) error

	// RegisterProcessor binds the handler for the named queue's jobs.
	// At most one processor per queue; a second registration replaces the
	// first.
	RegisterProcessor(queue string, fn ProcessorFunc)
}
