package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one fixture record bound for its catalog.
type Job struct {
	Kind   Kind
	Record Record
}

// Tally counts queue outcomes.
type Tally struct {
	Created  uint32
	Existing uint32
	Failed   uint32
}

// RecordQueue fans fixture records out to a fixed set of workers.
type RecordQueue struct {
	ingredients IngredientStore
	tags        TagStore
	logger      *zap.Logger
	workers     int
	timeout     time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	created  atomic.Uint32
	existing atomic.Uint32
	failed   atomic.Uint32
}

type Option func(*RecordQueue)

func WithWorkers(n int) Option {
	return func(q *RecordQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RecordQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithRecordTimeout(d time.Duration) Option {
	return func(q *RecordQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewRecordQueue starts the workers. SQLite callers should keep one worker.
func NewRecordQueue(ingredients IngredientStore, tags TagStore, logger *zap.Logger, opts ...Option) *RecordQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &RecordQueue{
		ingredients: ingredients,
		tags:        tags,
		logger:      logger,
		workers:     4,
		timeout:     10 * time.Second,
		ch:          make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RecordQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					created, err := q.write(ctx, job)
					cancel()

					switch {
					case err != nil:
						q.failed.Add(1)
						q.logger.Warn("ingest.record.failed",
							zap.Int("worker_id", workerID),
							zap.String("kind", string(job.Kind)),
							zap.String("name", job.Record.Name),
							zap.Error(err))
					case created:
						q.created.Add(1)
					default:
						q.existing.Add(1)
					}
				}
			}(i + 1)
		}
	})
}

// write stores one record and reports whether the row was newly created.
func (q *RecordQueue) write(ctx context.Context, job Job) (bool, error) {
	if job.Kind == KindTags {
		_, created, err := q.tags.GetOrCreate(ctx, job.Record.Name, job.Record.Slug)
		return created, err
	}
	_, created, err := q.ingredients.GetOrCreate(ctx, job.Record.Name, job.Record.Unit)
	return created, err
}

// Enqueue blocks when the buffer is full. It returns false once the queue is closed.
func (q *RecordQueue) Enqueue(ctx context.Context, job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Shutdown closes the queue, waits for the workers and returns the tally.
func (q *RecordQueue) Shutdown(ctx context.Context) Tally {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("ingest.queue.shutdown_interrupted")
	case <-done:
	}
	return Tally{Created: q.created.Load(), Existing: q.existing.Load(), Failed: q.failed.Load()}
}
