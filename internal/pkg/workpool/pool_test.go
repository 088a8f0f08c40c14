package workpool

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chainlist-prober/internal/pkg/apperrors"
)

func TestRun_BoundedAndAligned(t *testing.T) {
	const (
		numTasks = 60
		limit    = 7
	)

	var inFlight, maxInFlight, calls atomic.Int64
	tasks := make([]Task[int], numTasks)
	for i := range tasks {
		delay := time.Duration(rand.Intn(15)) * time.Millisecond
		tasks[i] = func(ctx context.Context) (int, error) {
			calls.Add(1)
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				prev := maxInFlight.Load()
				if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(delay)
			return i * 10, nil
		}
	}

	results := Run(context.Background(), tasks, limit, WithLogger(zap.NewNop()))

	require.Len(t, results, numTasks)
	for i, res := range results {
		require.True(t, res.OK(), "task %d", i)
		assert.Equal(t, i*10, res.Value, "result %d out of place", i)
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int64(limit))
	assert.Equal(t, int64(numTasks), calls.Load(), "every task must run exactly once")
}

func TestRun_LimitLargerThanTaskCount(t *testing.T) {
	var maxInFlight, inFlight atomic.Int64
	tasks := make([]Task[string], 3)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (string, error) {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			if cur > maxInFlight.Load() {
				maxInFlight.Store(cur)
			}
			time.Sleep(5 * time.Millisecond)
			return string(rune('a' + i)), nil
		}
	}

	results := Run(context.Background(), tasks, 128)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Value)
	assert.Equal(t, "b", results[1].Value)
	assert.Equal(t, "c", results[2].Value)
	assert.LessOrEqual(t, maxInFlight.Load(), int64(3))
}

func TestRun_LimitBelowOneRunsSequentially(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	tasks := make([]Task[int], 5)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			if cur > maxInFlight.Load() {
				maxInFlight.Store(cur)
			}
			return i, nil
		}
	}

	results := Run(context.Background(), tasks, 0)
	require.Len(t, results, 5)
	assert.Equal(t, int64(1), maxInFlight.Load())
}

func TestRun_Empty(t *testing.T) {
	results := Run[int](context.Background(), nil, 4)
	assert.Empty(t, results)
}

func TestRun_FailuresBecomeSentinels(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (int, error) { panic("kaboom") },
		nil,
		func(ctx context.Context) (int, error) { return 5, nil },
	}

	results := Run(context.Background(), tasks, 2)
	require.Len(t, results, 5)

	assert.True(t, results[0].OK())
	assert.Equal(t, 1, results[0].Value)

	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorIs(t, results[2].Err, ErrTaskPanicked)
	assert.ErrorIs(t, results[3].Err, apperrors.ErrInvalidInput)

	assert.True(t, results[4].OK())
	assert.Equal(t, 5, results[4].Value)
}

func TestRun_TaskTimeoutAbandonsSlowTask(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			<-release // ignores ctx on purpose
			return 1, nil
		},
		func(ctx context.Context) (int, error) { return 2, nil },
	}

	start := time.Now()
	results := Run(context.Background(), tasks, 2, WithTaskTimeout(30*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)

	assert.ErrorIs(t, results[0].Err, apperrors.ErrTimeout)
	assert.True(t, results[1].OK())
	assert.Equal(t, 2, results[1].Value)
}

func TestRun_CancelledContextMarksUnclaimedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			cancel()
			return 1, nil
		},
		func(ctx context.Context) (int, error) { return 2, nil },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	results := Run(ctx, tasks, 1)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.ErrorIs(t, results[1].Err, context.Canceled)
	assert.ErrorIs(t, results[2].Err, context.Canceled)
}
