package tuner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swapPipeline struct {
	Level int
}

type swapSource struct {
	mu      sync.Mutex
	current Instance
	changes *Event
}

func (s *swapSource) Current() Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

func (s *swapSource) Changes() *Event { return s.changes }

func (s *swapSource) load(instance Instance) {
	s.mu.Lock()
	s.current = instance
	s.mu.Unlock()
	s.changes.Fire(instance)
}

// runBlocked starts the consumer of m and parks it inside a waited task until
// the returned release function is called.
func runBlocked(t *testing.T, m *Manager) (release func(), stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- m.Run(ctx)
	}()
	require.Eventually(t, m.queue.Running, time.Second, time.Millisecond)

	busy := make(chan struct{})
	unblock := make(chan struct{})
	go func() {
		_ = m.Exec(ctx, func() error {
			close(busy)
			<-unblock

			return nil
		})
	}()
	<-busy

	var once sync.Once
	release = func() { once.Do(func() { close(unblock) }) }
	stop = func() {
		release()
		cancel()
		require.NoError(t, <-done)
	}

	return release, stop
}

func TestManagerResetRunsBeforeLaterWrites(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		first := &swapPipeline{Level: 1}
		second := &swapPipeline{Level: 2}
		src := &swapSource{current: first, changes: NewEvent(nil)}
		m, err := NewManager(src, WithTickInterval(time.Hour))
		require.NoError(t, err)
		require.NoError(t, m.Initialize(context.Background()))

		release, stop := runBlocked(t, m)
		src.load(second)

		written := make(chan error, 1)
		go func() {
			written <- m.SetSlotValue(context.Background(), "Level", 0, "7")
		}()
		time.Sleep(5 * time.Millisecond)
		release()

		require.NoError(t, <-written)
		assert.Equal(t, 7, second.Level)
		assert.Equal(t, 1, first.Level)
		stop()
	}
}

func TestManagerCoalescesPendingResets(t *testing.T) {
	t.Parallel()

	src := &swapSource{current: &swapPipeline{Level: 1}, changes: NewEvent(nil)}
	m, err := NewManager(src, WithTickInterval(time.Hour))
	require.NoError(t, err)
	require.NoError(t, m.Initialize(context.Background()))

	release, stop := runBlocked(t, m)
	defer stop()

	last := &swapPipeline{Level: 3}
	for i := 0; i < 3*defaultPostBuffer; i++ {
		src.load(&swapPipeline{Level: i})
	}
	src.load(last)
	assert.Len(t, m.queue.posts, 1)

	release()
	require.Eventually(t, func() bool {
		return len(m.queue.posts) == 0 && !m.resetPending.Load()
	}, time.Second, time.Millisecond)

	require.NoError(t, m.SetSlotValue(context.Background(), "Level", 0, "9"))
	assert.Equal(t, 9, last.Level)
}
