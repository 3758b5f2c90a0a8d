package panelconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/pkg/tuner/model"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
)

func TestStoreResolve(t *testing.T) {
	t.Parallel()

	s := panelconfig.New()
	got := s.Resolve("numeric")
	assert.Equal(t, model.GlobalSource, got.Source)
	assert.Equal(t, model.TextboxesMode, got.Mode)

	require.NoError(t, s.ApplyToKind("color", model.PanelConfig{Mode: model.SlidersMode, ColorSpace: model.HSVColorSpace}))
	got = s.Resolve("color")
	assert.Equal(t, model.TypeSource, got.Source)
	assert.Equal(t, model.SlidersMode, got.Mode)
	assert.Equal(t, model.HSVColorSpace, got.ColorSpace)
	assert.Equal(t, model.SliderRange{Min: 0, Max: 255}, got.SliderRange)
	assert.Equal(t, model.GlobalSource, s.Resolve("numeric").Source)
	assert.Equal(t, []string{"color"}, s.Kinds())

	require.NoError(t, s.ApplyGlobal(model.PanelConfig{Mode: model.SlidersMode, SliderRange: model.SliderRange{Min: -1, Max: 1}}))
	got = s.Resolve("numeric")
	assert.Equal(t, model.SliderRange{Min: -1, Max: 1}, got.SliderRange)
	assert.Equal(t, model.GlobalSource, s.Global().Source)

	assert.True(t, s.ClearKind("color"))
	assert.False(t, s.ClearKind("color"))
	assert.Equal(t, model.GlobalSource, s.Resolve("color").Source)
}

func TestStoreRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tcs := map[string]model.PanelConfig{
		"mode":        {Mode: "dials"},
		"colour":      {ColorSpace: "cmyk"},
		"empty range": {SliderRange: model.SliderRange{Min: 4, Max: 4}},
	}
	for name, cfg := range tcs {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := panelconfig.New()
			assert.ErrorIs(t, s.ApplyGlobal(cfg), panelconfig.ErrInvalidConfig)
			assert.ErrorIs(t, s.ApplyToKind("numeric", cfg), panelconfig.ErrInvalidConfig)
			assert.False(t, s.Dirty())
		})
	}

	assert.ErrorIs(t, panelconfig.New().ApplyToKind("", model.PanelConfig{}), panelconfig.ErrInvalidConfig)
}

func TestStoreReplaceIsAtomic(t *testing.T) {
	t.Parallel()

	s := panelconfig.New()
	err := s.Replace(panelconfig.Document{
		Global: model.PanelConfig{Mode: model.SlidersMode},
		Kinds:  map[string]model.PanelConfig{"point": {Mode: "dials"}},
	})
	require.Error(t, err)
	assert.Equal(t, model.TextboxesMode, s.Global().Mode)
	assert.Empty(t, s.Kinds())
}

func TestStoreSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "panels.yaml")
	s, err := panelconfig.Load(path)
	require.NoError(t, err)
	assert.False(t, s.Dirty())

	require.NoError(t, s.ApplyToKind("vector", model.PanelConfig{Mode: model.SlidersMode, ColorSpace: model.LabColorSpace}))
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save())
	assert.False(t, s.Dirty())

	loaded, err := panelconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Document(), loaded.Document())
	assert.Equal(t, model.LabColorSpace, loaded.Resolve("vector").ColorSpace)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "panels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global: ["), 0o600))
	_, err := panelconfig.Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("global:\n  mode: dials\n"), 0o600))
	_, err = panelconfig.Load(path)
	assert.ErrorIs(t, err, panelconfig.ErrInvalidConfig)
}

func TestSaveWithoutPath(t *testing.T) {
	t.Parallel()

	assert.Error(t, panelconfig.New().Save())
}
