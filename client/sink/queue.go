package sink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/adamwoolhether/s3req/client"
	"github.com/adamwoolhether/s3req/request"
)

// Queue downloads objects to files over one shared client, running at
// most maxConcurrent requests at a time. Each scheduled object reports
// through its own Result; Wait joins every failure as an [*ObjectError].
type Queue struct {
	c      *client.Client
	logger *slog.Logger
	sem    chan struct{}

	wg       sync.WaitGroup
	shutdown atomic.Bool
	queued   atomic.Int64

	mu   sync.Mutex
	errs []error
}

// NewQueue returns a Queue sending through c. If maxConcurrent <= 0 every
// scheduled object starts immediately.
func NewQueue(c *client.Client, maxConcurrent int, logger *slog.Logger) (*Queue, error) {
	if c == nil {
		return nil, errors.New("client must not be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	q := Queue{
		c:      c,
		logger: logger,
	}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}

	return &q, nil
}

// Object schedules the download of d into dest and returns at once. opts
// apply to this object only.
func (q *Queue) Object(ctx context.Context, d *request.Descriptor, dest string, opts ...Option) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := &Result{
		Bucket: d.Bucket(),
		Path:   d.Path(),
		Dest:   dest,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	q.queued.Add(1)
	q.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(r.done)
			q.wg.Done()
		}()

		status, err := q.fetch(ctx, d, dest, opts)
		r.status = status
		if err != nil {
			r.err = &ObjectError{Bucket: r.Bucket, Path: r.Path, Dest: dest, Err: err}
			q.recordErr(r.err)
		}
	}()

	return r
}

func (q *Queue) fetch(ctx context.Context, d *request.Descriptor, dest string, opts []Option) (int, error) {
	if q.sem != nil {
		select {
		case q.sem <- struct{}{}:
			defer func() {
				<-q.sem
			}()
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	if q.shutdown.Load() {
		return 0, ErrQueueShutdown
	}

	return File(ctx, dest, writerFill(ctx, q.c, d), q.logger, opts...)
}

// Wait blocks until every scheduled object finished and returns their
// failures joined.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.logger.Debug("object queue drained", "objects", q.queued.Load(), "failed", len(q.errs))

	return errors.Join(q.errs...)
}

// Shutdown makes objects that have not started yet fail with
// [ErrQueueShutdown] instead of being requested.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}

// writerFill feeds a sink from the writer consumption mode of c.
func writerFill(ctx context.Context, c *client.Client, d *request.Descriptor) FillFunc {
	return func(w io.Writer) (int, error) {
		return c.ResponseDataToWriter(ctx, d, w)
	}
}
