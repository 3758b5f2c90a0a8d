package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

type DefaultMeasure struct {
	mu         sync.RWMutex
	Fields     map[string]Metric
	Generation string
	Ticks      int64
	LastTick   time.Duration
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Fields: make(map[string]Metric),
	}
}

func (m *DefaultMeasure) AddMetric(field *model.FieldInfo) Metric {
	return m.addMetric(field, newDefaultMetric())
}

func (m *DefaultMeasure) addMetric(field *model.FieldInfo, mt Metric) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchGeneration(field.Generation)
	m.Fields[field.Name] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Fields[name]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Metric, len(m.Fields))
	for name, mt := range m.Fields {
		out[name] = mt
	}

	return out
}

// ObserveReset forgets the metrics of the previous generation.
func (m *DefaultMeasure) ObserveReset(generation string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchGeneration(generation)
}

func (m *DefaultMeasure) switchGeneration(generation string) {
	if m.Generation != generation {
		m.Fields = make(map[string]Metric)
		m.Generation = generation
	}
}

func (m *DefaultMeasure) ObserveTick(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks++
	m.LastTick = elapsed
}

var _ Measure = (*DefaultMeasure)(nil)
