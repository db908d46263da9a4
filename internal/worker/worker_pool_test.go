package worker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var done int32
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(func() {
			atomic.AddInt32(&done, 1)
		}))
	}

	require.NoError(t, pool.Stop())
	assert.Equal(t, int32(100), atomic.LoadInt32(&done))
}

func TestWorkerPool_SurvivesPanickingTask(t *testing.T) {
	pool := NewWorkerPool(2, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var done int32
	require.NoError(t, pool.Submit(func() {
		panic("task blew up")
	}))
	require.NoError(t, pool.Submit(func() {
		atomic.AddInt32(&done, 1)
	}))

	require.NoError(t, pool.Stop())
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestWorkerPool_MinimumOneWorker(t *testing.T) {
	pool := NewWorkerPool(0, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var done int32
	require.NoError(t, pool.Submit(func() {
		atomic.AddInt32(&done, 1)
	}))

	require.NoError(t, pool.Stop())
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestWorkerPool_SubmitAfterStopReturnsError(t *testing.T) {
	pool := NewWorkerPool(2, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop())

	err := pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestWorkerPool_StopIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())
}
