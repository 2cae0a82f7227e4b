package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the Runner.
var (
	ErrQueueClosed = errors.New("job queue is closed")
	ErrQueueFull   = errors.New("job queue is full")
)

// Job is one unit of queued work.
type Job struct {
	ID         uuid.UUID
	Queue      string
	Payload    []byte
	Options    JobOptions
	Attempt    int
	EnqueuedAt time.Time
}

// RunnerConfig holds configuration for the in-process job runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int

	// BufferSize determines the capacity of the in-memory job buffer.
	BufferSize int

	// BackoffBase is the first retry's backoff; each subsequent retry
	// doubles it. Zero means DefaultBackoffBase.
	BackoffBase time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 4,
		BufferSize:  256,
		BackoffBase: DefaultBackoffBase,
	}
}

// Runner is an in-process Queue implementation: buffered job channels
// (one regular, one priority) drained by a worker pool, with timer-based
// delayed delivery and bounded retry. It keeps the at-least-once contract within a single process
// lifetime; jobs do not survive a restart.
type Runner struct {
	config     RunnerConfig
	jobs       chan *Job
	priority   chan *Job
	processors map[string]ProcessorFunc
	mu         sync.RWMutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	failedFn   func(job *Job, err error)
}

// NewRunner creates a new Runner. Call Start before enqueueing work.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultRunnerConfig().BufferSize
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultBackoffBase
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		config:     config,
		jobs:       make(chan *Job, config.BufferSize),
		priority:   make(chan *Job, config.BufferSize),
		processors: make(map[string]ProcessorFunc),
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With("component", "job_runner"),
		failedFn: func(job *Job, err error) {
			logger.Error("job exhausted all attempts",
				"job_id", job.ID,
				"queue", job.Queue,
				"attempts", job.Attempt,
				"error", err)
		},
	}
}

// Ensure Runner implements the Queue interface
var _ Queue = (*Runner)(nil)

// SetFailedHandler replaces the handler invoked when a job exhausts its
// attempts. The default logs the failure.
func (r *Runner) SetFailedHandler(fn func(job *Job, err error)) {
	r.failedFn = fn
}

// RegisterProcessor implements Queue.RegisterProcessor.
func (r *Runner) RegisterProcessor(queue string, fn ProcessorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[queue] = fn
	r.logger.Debug("registered processor", "queue", queue)
}

// Enqueue implements Queue.Enqueue. Delayed jobs are held on a timer and
// enter the worker buffer when the delay elapses.
func (r *Runner) Enqueue(ctx context.Context, queue string, payload any, opts ...JobOption) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	options := JobOptions{Attempts: DefaultAttempts}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Attempts <= 0 {
		options.Attempts = DefaultAttempts
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		ID:         uuid.New(),
		Queue:      queue,
		Payload:    data,
		Options:    options,
		EnqueuedAt: time.Now().UTC(),
	}

	r.logger.Debug("job enqueued",
		"job_id", job.ID,
		"queue", queue,
		"delay", options.Delay,
		"attempts", options.Attempts)

	if options.Delay > 0 {
		// Held on a timer until the delay elapses; dropped if the runner
		// stops first (in-process jobs do not survive shutdown anyway).
		time.AfterFunc(options.Delay, func() { r.deliver(job) })
		return nil
	}

	return r.push(job)
}

// buffer selects the channel a job belongs on. Jobs with priority above
// zero get the buffer workers poll first.
func (r *Runner) buffer(job *Job) chan *Job {
	if job.Options.Priority > 0 {
		return r.priority
	}
	return r.jobs
}

// push places a job into its buffer, failing fast when full.
func (r *Runner) push(job *Job) error {
	ch := r.buffer(job)
	select {
	case ch <- job:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(ch))
	}
}

// deliver moves a delayed job into its buffer once its timer fires.
func (r *Runner) deliver(job *Job) {
	select {
	case <-r.ctx.Done():
	case r.buffer(job) <- job:
	}
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("job runner started", "worker_count", r.config.WorkerCount)
}

// Stop shuts the runner down: no new jobs are accepted, pending delayed
// timers are cancelled, and workers finish the job they hold.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

// worker drains the job buffers until the runner stops, preferring the
// priority buffer whenever it holds work.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case job := <-r.priority:
			r.process(job, id)
			continue
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case job := <-r.priority:
			r.process(job, id)
		case job := <-r.jobs:
			r.process(job, id)
		}
	}
}

// process executes one job with bounded retry and exponential backoff.
func (r *Runner) process(job *Job, workerID int) {
	logger := r.logger.With(
		"job_id", job.ID,
		"queue", job.Queue,
		"worker_id", workerID,
	)

	r.mu.RLock()
	fn, ok := r.processors[job.Queue]
	r.mu.RUnlock()
	if !ok {
		logger.Error("no processor registered for queue")
		r.failedFn(job, fmt.Errorf("no processor registered for queue %q", job.Queue))
		return
	}

	var lastErr error
	for job.Attempt = 1; job.Attempt <= job.Options.Attempts; job.Attempt++ {
		lastErr = fn(r.ctx, job.Payload)
		if lastErr == nil {
			logger.Debug("job completed", "attempt", job.Attempt)
			return
		}

		logger.Warn("job attempt failed",
			"attempt", job.Attempt,
			"max_attempts", job.Options.Attempts,
			"error", lastErr)

		if job.Attempt == job.Options.Attempts {
			break
		}

		backoff := r.config.BackoffBase << (job.Attempt - 1)
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	r.failedFn(job, lastErr)
}
