package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case id := <-done:
		assert.Equal(t, "job-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueWithoutRetries(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: -1, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueTryEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, MaxRetries: -1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(Job{ID: "running"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "waiting"}))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "rejected"}), ErrQueueFull)
	assert.True(t, q.Busy())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}
