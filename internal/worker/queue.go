package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a named unit of background work. Jobs run outside the request
// path, so failures are logged rather than returned to the caller.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue fans jobs out to a fixed pool of workers over a bounded channel.
// Enqueue never blocks the caller: when the buffer is full the job is
// dropped with a warning, trading completeness for request latency.
type Queue struct {
	jobs       chan Job
	logger     *slog.Logger
	jobTimeout time.Duration
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 64
	}

	return &Queue{
		jobs:       make(chan Job, size),
		logger:     logger,
		jobTimeout: 30 * time.Second,
	}
}

// Start launches concurrency workers that drain the queue until Stop is
// called and the buffer is empty.
func (q *Queue) Start(concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}

	for i := range concurrency {
		q.wg.Add(1)

		go q.worker(i)
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for job := range q.jobs {
		q.execute(id, job)
	}
}

func (q *Queue) execute(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("background job panicked",
				slog.String("job", job.Name),
				slog.Int("worker", workerID),
				slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.jobTimeout)
	defer cancel()

	start := time.Now()

	if err := job.Run(ctx); err != nil {
		q.logger.Error("background job failed",
			slog.String("job", job.Name),
			slog.Int("worker", workerID),
			slog.String("error", err.Error()))

		return
	}

	q.logger.Debug("background job completed",
		slog.String("job", job.Name),
		slog.Duration("took", time.Since(start)))
}

// Enqueue submits a job without blocking. Returns false if the queue is
// full or already stopped and the job was dropped.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	job := Job{Name: name, Run: fn}

	defer func() {
		// Send on a closed channel panics; a job enqueued during
		// shutdown is dropped like a full-buffer one.
		if r := recover(); r != nil {
			q.logger.Warn("job dropped, queue stopped", slog.String("job", name))
		}
	}()

	select {
	case q.jobs <- job:
		return true
	default:
		q.logger.Warn("job dropped, queue full", slog.String("job", name))

		return false
	}
}

// Stop closes the queue and waits for in-flight and buffered jobs to
// finish.
func (q *Queue) Stop() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}
