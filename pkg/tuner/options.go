package tuner

import (
	"log/slog"
	"time"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultDiagnostics  = 64
)

type ManagerOption func(m *Manager)

// WithTickInterval sets the period of the update sweep driven by Run.
func WithTickInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.tick = d
		}
	}
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRegistry replaces the process-wide default registry.
func WithRegistry(r *Registry) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithConfigResolver sets where panel configurations are resolved from.
func WithConfigResolver(resolver ConfigResolver) ManagerOption {
	return func(m *Manager) {
		if resolver != nil {
			m.resolver = resolver
		}
	}
}

func WithTunerOptions(opts ...model.TunerOption) ManagerOption {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// WithDiagnosticsCapacity bounds the number of retained diagnostics.
func WithDiagnosticsCapacity(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.diagCap = n
		}
	}
}
