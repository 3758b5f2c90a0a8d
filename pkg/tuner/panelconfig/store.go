// Package panelconfig stores the global and per-kind panel configurations
// and resolves the configuration a panel starts with.
package panelconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

var ErrInvalidConfig = errors.New("invalid panel configuration")

// Document is the persisted form of a Store.
type Document struct {
	Global model.PanelConfig            `yaml:"global"`
	Kinds  map[string]model.PanelConfig `yaml:"kinds,omitempty"`
}

// Store holds one global configuration and optional per-kind overrides.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	global model.PanelConfig
	kinds  map[string]model.PanelConfig
	dirty  bool

	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(s *Store)

// WithPath sets the file used by Load and Save.
func WithPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store seeded with model.DefaultPanelConfig, stored without a
// source like every normalized configuration.
func New(opts ...Option) *Store {
	global := model.DefaultPanelConfig()
	global.Source = ""
	s := &Store{
		global: global,
		kinds:  make(map[string]model.PanelConfig),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "panelconfig")

	return s
}

// Load creates a store and reads path into it. A missing file leaves the
// defaults in place.
func Load(path string, opts ...Option) (*Store, error) {
	s := New(append(opts, WithPath(path))...)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("panel configuration file not found, using defaults", "path", path)

		return s, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}
	if err := s.Replace(doc); err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", path)
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	return s, nil
}

// Resolve returns the kind-specific configuration when one exists, the
// global one otherwise.
func (s *Store) Resolve(kind string) model.PanelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.kinds[kind]; ok {
		cfg.Source = model.TypeSource

		return cfg
	}
	cfg := s.global
	cfg.Source = model.GlobalSource

	return cfg
}

// Global returns the global configuration.
func (s *Store) Global() model.PanelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.global
	cfg.Source = model.GlobalSource

	return cfg
}

// Kinds lists the kinds that carry their own configuration.
func (s *Store) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]string, 0, len(s.kinds))
	for kind := range s.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	return kinds
}

// ApplyGlobal replaces the global configuration.
func (s *Store) ApplyGlobal(cfg model.PanelConfig) error {
	cfg, err := Normalize(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = cfg
	s.dirty = true

	return nil
}

// ApplyToKind stores cfg for every panel of kind.
func (s *Store) ApplyToKind(kind string, cfg model.PanelConfig) error {
	if kind == "" {
		return errors.Wrap(ErrInvalidConfig, "kind is empty")
	}
	cfg, err := Normalize(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[kind] = cfg
	s.dirty = true

	return nil
}

// ClearKind removes the configuration of kind. It reports whether one existed.
func (s *Store) ClearKind(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kinds[kind]; !ok {
		return false
	}
	delete(s.kinds, kind)
	s.dirty = true

	return true
}

// Replace swaps the whole content of the store. Nothing changes when any
// configuration of doc is invalid.
func (s *Store) Replace(doc Document) error {
	global, err := Normalize(doc.Global)
	if err != nil {
		return errors.Wrap(err, "global")
	}
	kinds := make(map[string]model.PanelConfig, len(doc.Kinds))
	for kind, cfg := range doc.Kinds {
		if kinds[kind], err = Normalize(cfg); err != nil {
			return errors.Wrap(err, kind)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = global
	s.kinds = kinds
	s.dirty = true

	return nil
}

// Document returns a copy of the store content.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := Document{Global: s.global, Kinds: make(map[string]model.PanelConfig, len(s.kinds))}
	for kind, cfg := range s.kinds {
		doc.Kinds[kind] = cfg
	}

	return doc
}

// Dirty reports whether the store changed since it was last loaded or saved.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dirty
}

// Save writes the store to its path. The file is replaced atomically.
func (s *Store) Save() error {
	if s.path == "" {
		return errors.New("panel configuration store has no path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{Global: s.global, Kinds: s.kinds}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "unable to encode panel configuration")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return errors.Wrap(err, "unable to write panel configuration")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to close temporary file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "unable to replace %s", s.path)
	}
	s.dirty = false
	s.logger.Debug("panel configuration saved", "path", s.path, "kinds", len(s.kinds))

	return nil
}

// Normalize fills the unset parts of cfg with the defaults and validates the
// result. The returned configuration carries no source.
func Normalize(cfg model.PanelConfig) (model.PanelConfig, error) {
	def := model.DefaultPanelConfig()
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.ColorSpace == "" {
		cfg.ColorSpace = def.ColorSpace
	}
	if cfg.SliderRange == (model.SliderRange{}) {
		cfg.SliderRange = def.SliderRange
	}

	switch cfg.Mode {
	case model.TextboxesMode, model.SlidersMode:
	default:
		return cfg, errors.Wrapf(ErrInvalidConfig, "unknown panel mode %q", cfg.Mode)
	}
	switch cfg.ColorSpace {
	case model.RGBColorSpace, model.HSVColorSpace, model.YCrCbColorSpace, model.LabColorSpace:
	default:
		return cfg, errors.Wrapf(ErrInvalidConfig, "unknown colour space %q", cfg.ColorSpace)
	}
	if !cfg.SliderRange.Valid() {
		return cfg, errors.Wrapf(ErrInvalidConfig, "slider range [%v, %v] is empty", cfg.SliderRange.Min, cfg.SliderRange.Max)
	}
	cfg.Source = ""

	return cfg, nil
}
