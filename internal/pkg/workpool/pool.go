// Package workpool runs independent tasks with a fixed concurrency ceiling
// and returns their results positionally aligned with the input.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chainlist-prober/internal/pkg/apperrors"
)

// ErrTaskPanicked is recorded for a task that panicked.
var ErrTaskPanicked = errors.New("task panicked")

// Task is a unit of work executed by Run.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task at the same index. A non-nil Err means
// the task produced no result.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task produced a result.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

type options struct {
	taskTimeout time.Duration
	logger      *zap.Logger
}

// Option configures Run.
type Option func(*options)

// WithTaskTimeout bounds every task. A task still running at its deadline is
// abandoned and its slot records apperrors.ErrTimeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) { o.taskTimeout = d }
}

// WithLogger sets the logger used for worker lifecycle messages.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Run executes every task with at most limit of them in flight and returns a
// slice where result[i] belongs to tasks[i]. A limit below 1 is treated as 1.
// Failures are recorded per slot and never stop other tasks. Tasks not yet
// claimed when ctx is done record ctx.Err().
func Run[T any](ctx context.Context, tasks []Task[T], limit int, opts ...Option) []Result[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	numWorkers := limit
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(tasks) {
		numWorkers = len(tasks)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			o.logger.Debug("Starting worker", zap.Int("workerID", workerID))
			for {
				index := int(cursor.Add(1) - 1)
				if index >= len(tasks) {
					break
				}
				if err := ctx.Err(); err != nil {
					results[index] = Result[T]{Err: err}
					continue
				}
				results[index] = execute(ctx, tasks[index], o.taskTimeout)
			}
			o.logger.Debug("Worker finished", zap.Int("workerID", workerID))
		}(w)
	}

	wg.Wait()
	return results
}

func execute[T any](ctx context.Context, task Task[T], timeout time.Duration) Result[T] {
	if timeout <= 0 {
		return safeCall(ctx, task)
	}

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		done <- safeCall(taskCtx, task)
	}()

	select {
	case res := <-done:
		return res
	case <-taskCtx.Done():
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			return Result[T]{Err: fmt.Errorf("%w: task exceeded %v", apperrors.ErrTimeout, timeout)}
		}
		return Result[T]{Err: taskCtx.Err()}
	}
}

func safeCall[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
		}
	}()
	if task == nil {
		return Result[T]{Err: fmt.Errorf("%w: nil task", apperrors.ErrInvalidInput)}
	}
	value, err := task(ctx)
	if err != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Value: value}
}
