package tuner

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

const defaultPostBuffer = 16

type task struct {
	fn   func() error
	done chan error
}

// taskQueue serializes every field-affecting operation on one consumer.
// A posted reset is never overtaken by a later waited task.
// While no consumer runs, tasks execute inline on the caller goroutine under
// the same lock, so operations never interleave either way.
type taskQueue struct {
	exec sync.Mutex

	mu    sync.RWMutex
	stop  chan struct{}
	tasks chan task
	posts chan task
}

func newTaskQueue(postBuffer int) *taskQueue {
	if postBuffer <= 0 {
		postBuffer = defaultPostBuffer
	}

	return &taskQueue{
		tasks: make(chan task),
		posts: make(chan task, postBuffer),
	}
}

func (q *taskQueue) stopChan() chan struct{} {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.stop
}

// Running reports whether a consumer is attached.
func (q *taskQueue) Running() bool {
	return q.stopChan() != nil
}

func (q *taskQueue) inline(fn func() error) error {
	q.exec.Lock()
	defer q.exec.Unlock()

	return fn()
}

// Do runs fn on the consumer and waits for its result.
func (q *taskQueue) Do(ctx context.Context, fn func() error) error {
	stop := q.stopChan()
	if stop == nil {
		return q.inline(fn)
	}

	done := make(chan error, 1)
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "task not queued")
	case <-stop:
		return q.inline(fn)
	case q.tasks <- task{fn: fn, done: done}:
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "task queued but not awaited")
	case err := <-done:
		return err
	}
}

// Post queues fn without waiting for it. It runs inline when no consumer is
// attached, and fails when the buffer is full.
func (q *taskQueue) Post(fn func() error) error {
	if q.stopChan() == nil {
		return q.inline(fn)
	}
	select {
	case q.posts <- task{fn: fn}:
		return nil
	default:
		return errors.New("task queue is full")
	}
}

// run consumes tasks until ctx is cancelled. onErr receives the errors of
// posted tasks, which have nobody waiting for them.
//
// Posts accepted before a Do was submitted run before it: the consumer drains
// the post buffer ahead of every waited task.
func (q *taskQueue) run(ctx context.Context, onErr func(error)) error {
	q.mu.Lock()
	if q.stop != nil {
		q.mu.Unlock()

		return errors.New("task queue already has a consumer")
	}
	stop := make(chan struct{})
	q.stop = stop
	q.mu.Unlock()

	defer func() {
		q.drain(onErr)
		q.mu.Lock()
		q.stop = nil
		close(stop)
		q.mu.Unlock()
		q.drain(onErr)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-q.tasks:
			q.drain(onErr)
			err := q.inline(t.fn)
			t.done <- err
		case t := <-q.posts:
			if err := q.inline(t.fn); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// drain runs every buffered post.
func (q *taskQueue) drain(onErr func(error)) {
	for {
		select {
		case t := <-q.posts:
			if err := q.inline(t.fn); err != nil && onErr != nil {
				onErr(err)
			}
		default:
			return
		}
	}
}
