// Package jobs runs background work such as attendance sheet imports on an
// in-memory worker pool and keeps track of each job's outcome.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the lifecycle of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Done reports whether the job reached a final state.
func (s State) Done() bool { return s == StateSucceeded || s == StateFailed }

// Job is a unit of queued work.
type Job struct {
	ID       string
	Kind     string
	Payload  any
	Attempt  int
	Enqueued time.Time
}

// Status is the externally visible state of a job.
type Status struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	State     State     `json:"state"`
	Attempts  int       `json:"attempts"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Handler processes a job and returns a result stored on success.
type Handler func(ctx context.Context, job Job) (any, error)

// Config configures the worker pool. Retryable decides whether a failed
// attempt is worth another run; nil retries every error. Finished job
// statuses are dropped once they are older than StatusTTL.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	StatusTTL  time.Duration
	Retryable  func(error) bool
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed number of goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     Config
	logger  *zap.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	started  bool
	statuses map[string]Status
}

// NewQueue builds a queue; Start must be called before Submit.
func NewQueue(name string, handler Handler, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return true }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:     name,
		handler:  handler,
		cfg:      cfg,
		logger:   cfg.Logger.With(zap.String("queue", name)),
		jobs:     make(chan Job, cfg.BufferSize),
		statuses: make(map[string]Status),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for them to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Submit enqueues a payload and returns the id used to poll its status.
func (q *Queue) Submit(kind string, payload any) (string, error) {
	job := Job{ID: uuid.NewString(), Kind: kind, Payload: payload, Enqueued: time.Now().UTC()}
	q.setStatus(Status{ID: job.ID, Kind: kind, State: StateQueued})
	if err := q.push(job); err != nil {
		q.forget(job.ID)
		return "", err
	}
	return job.ID, nil
}

// Status returns the last known state of a job.
func (q *Queue) Status(id string) (Status, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.statuses[id]
	return st, ok
}

func (q *Queue) push(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()
	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *Queue) process(job Job) {
	job.Attempt++
	q.setStatus(Status{ID: job.ID, Kind: job.Kind, State: StateRunning, Attempts: job.Attempt})
	result, err := q.handler(q.ctx, job)
	if err == nil {
		q.setStatus(Status{ID: job.ID, Kind: job.Kind, State: StateSucceeded, Attempts: job.Attempt, Result: result})
		return
	}
	if job.Attempt > q.cfg.MaxRetries || !q.cfg.Retryable(err) {
		q.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("kind", job.Kind), zap.Int("attempts", job.Attempt), zap.Error(err))
		q.setStatus(Status{ID: job.ID, Kind: job.Kind, State: StateFailed, Attempts: job.Attempt, Error: err.Error()})
		return
	}
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	q.setStatus(Status{ID: job.ID, Kind: job.Kind, State: StateRetrying, Attempts: job.Attempt, Error: err.Error()})
	go q.retry(job)
}

func (q *Queue) retry(job Job) {
	timer := time.NewTimer(q.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		return
	case <-timer.C:
		if err := q.push(job); err != nil {
			q.logger.Error("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
			q.setStatus(Status{ID: job.ID, Kind: job.Kind, State: StateFailed, Attempts: job.Attempt, Error: err.Error()})
		}
	}
}

func (q *Queue) setStatus(st Status) {
	st.UpdatedAt = time.Now().UTC()
	q.mu.Lock()
	defer q.mu.Unlock()
	if st.State.Done() {
		q.pruneLocked(st.UpdatedAt)
	}
	q.statuses[st.ID] = st
}

// pruneLocked drops finished statuses older than the configured TTL.
func (q *Queue) pruneLocked(now time.Time) {
	for id, st := range q.statuses {
		if st.State.Done() && now.Sub(st.UpdatedAt) > q.cfg.StatusTTL {
			delete(q.statuses, id)
		}
	}
}

func (q *Queue) forget(id string) {
	q.mu.Lock()
	delete(q.statuses, id)
	q.mu.Unlock()
}
