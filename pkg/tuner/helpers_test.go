package tuner_test

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/pkg/tuner"
)

type Mode int

const (
	Binary Mode = iota
	Otsu
	Adaptive
)

var modeNames = []string{"binary", "otsu", "adaptive"}

func (m Mode) String() string { return modeNames[m] }

func (m *Mode) Set(s string) error {
	for i, name := range modeNames {
		if name == s {
			*m = Mode(i)

			return nil
		}
	}

	return errors.Errorf("unknown mode %q", s)
}

func (m *Mode) Domain() []string { return modeNames }

// thresholdPipeline has five eligible fields.
type thresholdPipeline struct {
	Level   uint8 `tune:"label=Threshold,min=0,max=255"`
	Mode    Mode
	Anchor  image.Point
	Tint    color.RGBA
	Enabled bool

	Kernel  []int
	Verbose bool `tune:"-"`
	scratch int
}

func newThresholdPipeline() *thresholdPipeline {
	return &thresholdPipeline{Level: 128, Anchor: image.Pt(1, 2), Tint: color.RGBA{R: 255, A: 255}, Enabled: true, scratch: 3}
}

type rangePipeline struct {
	Low   int `tune:"max=High"`
	High  int
	Scale [2]float64
}

type brokenTagPipeline struct {
	Good int
	Bad  int `tune:"bogus"`
}

type fakeSource struct {
	mu      sync.Mutex
	current tuner.Instance
	changes *tuner.Event
}

func newFakeSource(current tuner.Instance) *fakeSource {
	return &fakeSource{current: current, changes: tuner.NewEvent(nil)}
}

func (s *fakeSource) Current() tuner.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

func (s *fakeSource) Changes() *tuner.Event { return s.changes }

func (s *fakeSource) load(instance tuner.Instance) {
	s.mu.Lock()
	s.current = instance
	s.mu.Unlock()
	s.changes.Fire(instance)
}

func newTestRegistry(t *testing.T) *tuner.Registry {
	t.Helper()
	reg := tuner.NewRegistry(tuner.NewAcceptorChain(tuner.DefaultAcceptors()...), tuner.DefaultDeclarations()...)
	require.NoError(t, reg.Build())

	return reg
}

func fieldNames(t *testing.T, m *tuner.Manager) []string {
	t.Helper()
	var names []string
	for _, spec := range m.Snapshot() {
		names = append(names, spec.FieldName)
	}

	return names
}
