package vision

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/askiada/go-tuner/pkg/tuner"
)

// Manager owns the active pipeline instance.
type Manager struct {
	catalog Catalog
	changes *tuner.Event
	logger  *slog.Logger

	mu         sync.RWMutex
	current    Pipeline
	generation string
}

func NewManager(catalog Catalog, logger *slog.Logger) *Manager {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "vision")

	return &Manager{
		catalog: catalog,
		changes: tuner.NewEvent(logger),
		logger:  logger,
	}
}

// Current returns the active pipeline, or nil when none is loaded.
func (m *Manager) Current() tuner.Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}

	return m.current
}

// Changes fires once per successful Load and once per Unload.
func (m *Manager) Changes() *tuner.Event { return m.changes }

// Pipeline returns the active pipeline, nil when none is loaded.
func (m *Manager) Pipeline() Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Generation identifies the active instance. It changes on every swap.
func (m *Manager) Generation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.generation
}

func (m *Manager) Catalog() Catalog { return m.catalog }

// Load replaces the active pipeline with a fresh instance of name.
func (m *Manager) Load(name string) error {
	return m.LoadDefinition(Definition{Pipeline: name})
}

// LoadDefinition builds the pipeline of def, decodes its parameters and
// swaps it in. On error the active pipeline is left untouched and no event
// fires.
func (m *Manager) LoadDefinition(def Definition) error {
	instance, err := m.catalog.New(def.Pipeline)
	if err != nil {
		return err
	}
	if err := def.apply(instance); err != nil {
		return err
	}

	m.swap(instance)
	m.logger.Info("pipeline loaded", "pipeline", def.Pipeline, "generation", m.Generation())

	return nil
}

// Unload drops the active pipeline.
func (m *Manager) Unload() {
	m.swap(nil)
	m.logger.Info("pipeline unloaded")
}

func (m *Manager) swap(instance Pipeline) {
	m.mu.Lock()
	m.current = instance
	m.generation = uuid.NewString()
	m.mu.Unlock()

	m.changes.Fire(instance)
}
