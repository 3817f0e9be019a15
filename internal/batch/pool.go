package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docupost/invoice-extract/internal/pipeline"
)

// ErrClosed is returned by Submit once Collect has sealed the pool.
var ErrClosed = errors.New("pool already collected")

// Task is one document to process.
type Task struct {
	ID          uuid.UUID
	Filename    string
	S3Key       string
	SubmittedAt time.Time
}

// Result pairs a task with its document outcome. Tasks share no state; a
// result is complete when it leaves the worker.
type Result struct {
	Task     Task
	Document *pipeline.DocumentResult
}

// Processor handles one document end to end.
type Processor interface {
	ProcessDocument(ctx context.Context, filename, s3Key string) *pipeline.DocumentResult
}

// Pool dispatches document tasks to a fixed number of workers. Workers append
// finished results to an unbounded slice, so submission never waits on
// collection: any number of tasks can be queued before Collect is called.
// Results come back in completion order, not submission order; consumers
// needing a stable order re-sort by filename. A pool serves one batch:
// after Collect it cannot be reused.
type Pool struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once

	mu     sync.Mutex
	closed bool

	resMu   sync.Mutex
	results []Result
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.tasks = make(chan Task, n)
		}
	}
}

func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(proc Processor, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		proc:    proc,
		logger:  logger,
		workers: 3,
		timeout: 10 * time.Minute,
		tasks:   make(chan Task, 64),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)

				for task := range p.tasks {
					ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
					doc := p.proc.ProcessDocument(ctx, task.Filename, task.S3Key)
					cancel()

					p.resMu.Lock()
					p.results = append(p.results, Result{Task: task, Document: doc})
					p.resMu.Unlock()
					p.logger.Debug("task finished", "worker_id", workerID, "file", task.Filename,
						"status", doc.Metadata.Status)
				}

				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Submit enqueues a document and returns the task so the caller can correlate
// results. Blocks while the intake buffer is full; fails once the pool has
// been collected.
func (p *Pool) Submit(filename, s3Key string) (Task, error) {
	task := Task{
		ID:          uuid.New(),
		Filename:    filename,
		S3Key:       s3Key,
		SubmittedAt: time.Now(),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Task{}, ErrClosed
	}
	// Holding the lock across the send keeps close(tasks) from racing a
	// late Submit. Workers drain the channel without touching this lock,
	// so a full buffer only waits for the next free worker.
	p.tasks <- task
	p.mu.Unlock()

	p.logger.Info("submitted document", "file", filename, "task_id", task.ID)
	return task, nil
}

// Collect closes the intake, waits for all in-flight work and returns every
// result in completion order. The pool cannot be reused afterwards.
func (p *Pool) Collect() []Result {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.resMu.Lock()
	results := p.results
	p.resMu.Unlock()
	p.logger.Info("batch drained", "documents", len(results))
	return results
}
