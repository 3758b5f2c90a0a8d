package tuner

import (
	"log/slog"
	"sync"
)

// Source hands out the active pipeline instance and notifies swaps.
type Source interface {
	// Current returns the active instance, nil when no pipeline is loaded.
	Current() Instance
	// Changes fires exactly once per successful pipeline load.
	Changes() *Event
}

// Listener receives the newly active instance.
type Listener func(instance Instance)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listener struct {
	id   ListenerID
	fn   Listener
	once bool
}

// Event dispatches pipeline changes to persistent and one-shot listeners.
// A panicking listener is logged and does not prevent the others from running.
type Event struct {
	mu        sync.Mutex
	next      ListenerID
	listeners []listener
	logger    *slog.Logger
}

// NewEvent creates an event without listeners.
func NewEvent(logger *slog.Logger) *Event {
	if logger == nil {
		logger = slog.Default()
	}

	return &Event{logger: logger}
}

// Subscribe registers fn for every future firing.
func (e *Event) Subscribe(fn Listener) ListenerID {
	return e.add(fn, false)
}

// Once registers fn for the next firing only.
func (e *Event) Once(fn Listener) ListenerID {
	return e.add(fn, true)
}

func (e *Event) add(fn Listener, once bool) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners = append(e.listeners, listener{id: e.next, fn: fn, once: once})

	return e.next
}

// Unsubscribe removes a listener. It reports whether it was registered.
func (e *Event) Unsubscribe(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)

			return true
		}
	}

	return false
}

// Len returns the number of registered listeners.
func (e *Event) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.listeners)
}

// Fire calls every listener, in registration order, with instance.
func (e *Event) Fire(instance Instance) {
	e.mu.Lock()
	current := make([]listener, len(e.listeners))
	copy(current, e.listeners)
	kept := e.listeners[:0:0]
	for _, l := range e.listeners {
		if !l.once {
			kept = append(kept, l)
		}
	}
	e.listeners = kept
	e.mu.Unlock()

	for _, l := range current {
		e.call(l, instance)
	}
}

func (e *Event) call(l listener, instance Instance) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pipeline change listener panicked", "listener", l.id, "panic", r)
		}
	}()
	l.fn(instance)
}
