package tuner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-tuner/pkg/tuner"
)

func TestEventListeners(t *testing.T) {
	t.Parallel()

	ev := tuner.NewEvent(nil)
	var got []string
	ev.Subscribe(func(instance tuner.Instance) { got = append(got, "persistent") })
	ev.Once(func(instance tuner.Instance) { got = append(got, "once") })
	assert.Equal(t, 2, ev.Len())

	ev.Fire(nil)
	ev.Fire(nil)
	assert.Equal(t, []string{"persistent", "once", "persistent"}, got)
	assert.Equal(t, 1, ev.Len())
}

func TestEventUnsubscribe(t *testing.T) {
	t.Parallel()

	ev := tuner.NewEvent(nil)
	calls := 0
	id := ev.Subscribe(func(tuner.Instance) { calls++ })
	assert.True(t, ev.Unsubscribe(id))
	assert.False(t, ev.Unsubscribe(id))

	ev.Fire(nil)
	assert.Zero(t, calls)
}

func TestEventRecoversPanics(t *testing.T) {
	t.Parallel()

	ev := tuner.NewEvent(nil)
	var got tuner.Instance
	ev.Subscribe(func(tuner.Instance) { panic("boom") })
	ev.Subscribe(func(instance tuner.Instance) { got = instance })

	p := newThresholdPipeline()
	assert.NotPanics(t, func() { ev.Fire(p) })
	assert.Same(t, p, got)
}
