package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitExecutesTask(t *testing.T) {
	p, err := NewPool("test", DefaultPool, nil)
	require.NoError(t, err)
	defer p.Release()

	var wg sync.WaitGroup
	var counter atomic.Int32

	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(10), counter.Load())

	stats := p.Stats()
	assert.Equal(t, int64(10), stats.SubmittedTasks)
	assert.Equal(t, int64(10), stats.CompletedTasks)
	assert.Equal(t, int64(0), stats.FailedTasks)
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("test", DefaultPool, nil)
	require.NoError(t, err)

	p.Release()
	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestNonblockingOverload(t *testing.T) {
	p, err := NewPool("test", BackgroundPool, &Config{
		Capacity:    1,
		Nonblocking: true,
	})
	require.NoError(t, err)
	defer p.Release()

	block := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-block }))

	// 容量占满后非阻塞提交被拒绝
	require.Eventually(t, func() bool {
		return p.Running() == 1
	}, time.Second, 5*time.Millisecond)

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolOverload)
	assert.Equal(t, int64(1), p.Stats().RejectedTasks)

	close(block)
}

func TestPanicRecovered(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:     2,
		PanicHandler: func(interface{}) {},
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	require.Eventually(t, func() bool {
		return p.Stats().PanicRecovered == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), p.Stats().FailedTasks)
}

func TestSubmitWithContextCancelled(t *testing.T) {
	p, err := NewPool("test", DefaultPool, nil)
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(ctx, func() {
		t.Error("task must not run after cancellation")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseTimeoutWaitsForTasks(t *testing.T) {
	p, err := NewPool("test", IngestPool, IngestPoolConfig())
	require.NoError(t, err)

	var done atomic.Bool
	require.NoError(t, p.Submit(func() {
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	}))

	require.NoError(t, p.ReleaseTimeout(time.Second))
	assert.True(t, done.Load())
}
