package tuner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueueInlineWithoutConsumer(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(0)
	assert.False(t, q.Running())

	ran := false
	err := q.Do(context.Background(), func() error {
		ran = true

		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	assert.ErrorIs(t, q.Post(func() error { return assert.AnError }), assert.AnError)
}

func TestTaskQueueSerializes(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- q.run(ctx, nil)
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	var (
		wg      sync.WaitGroup
		counter int
		active  int
		overlap bool
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func() error {
				active++
				if active > 1 {
					overlap = true
				}
				counter++
				active--

				return nil
			})
		}()
	}
	wg.Wait()

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 50, counter)
	assert.False(t, overlap)
	assert.False(t, q.Running())
}

func TestTaskQueuePostReportsErrors(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	done := make(chan error)
	go func() {
		done <- q.run(ctx, func(err error) { errs <- err })
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	require.NoError(t, q.Post(func() error { return assert.AnError }))
	assert.ErrorIs(t, <-errs, assert.AnError)

	cancel()
	require.NoError(t, <-done)
}

func TestTaskQueueSingleConsumer(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = q.run(ctx, nil)
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	assert.Error(t, q.run(ctx, nil))
}

func TestTaskQueueDoCancelled(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(0)
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		_ = q.run(runCtx, nil)
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func() error {
			close(started)
			<-release

			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestTaskQueuePostsRunBeforeLaterTasks(t *testing.T) {
	t.Parallel()

	q := newTaskQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- q.run(ctx, nil)
	}()
	require.Eventually(t, q.Running, time.Second, time.Millisecond)

	for i := 0; i < 20; i++ {
		var order []string
		started := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = q.Do(ctx, func() error {
				close(started)
				<-release

				return nil
			})
		}()
		<-started

		require.NoError(t, q.Post(func() error {
			order = append(order, "post")

			return nil
		}))
		waited := make(chan error, 1)
		go func() {
			waited <- q.Do(ctx, func() error {
				order = append(order, "do")

				return nil
			})
		}()
		time.Sleep(time.Millisecond)
		close(release)

		require.NoError(t, <-waited)
		assert.Equal(t, []string{"post", "do"}, order)
	}

	cancel()
	require.NoError(t, <-done)
}
