package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "threshold", cfg.Pipeline.Initial)
	assert.Equal(t, 33*time.Millisecond, cfg.Pipeline.FrameInterval)
	assert.Equal(t, 320, cfg.Pipeline.FrameWidth)
	assert.Equal(t, "@every 30s", cfg.Panels.SaveSchedule)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
tick_interval: 20ms
pipeline:
  initial: " Blur "
  definition_file: pipeline.yaml
panels:
  file: panels.yaml
  save_schedule: "*/5 * * * *"
log:
  level: DEBUG
`), 0o600))
	t.Setenv("TUNER_LISTEN_ADDR", "127.0.0.1:9100")
	t.Setenv("TUNER_LOG_FORMAT", "json")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.ListenAddr)
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "blur", cfg.Pipeline.Initial)
	assert.Equal(t, "pipeline.yaml", cfg.Pipeline.DefinitionFile)
	assert.Equal(t, "panels.yaml", cfg.Panels.File)
	assert.Equal(t, "*/5 * * * *", cfg.Panels.SaveSchedule)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dot_path: graph.dot\n"), 0o600))
	t.Setenv("TUNER_CONFIG", path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "graph.dot", cfg.DOTPath)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *config.AppConfig {
		return &config.AppConfig{
			ListenAddr:   ":8080",
			TickInterval: time.Millisecond,
			Pipeline:     config.PipelineConfig{FrameInterval: time.Millisecond, FrameWidth: 1, FrameHeight: 1},
			Panels:       config.PanelsConfig{SaveSchedule: "@hourly"},
			Log:          config.LogConfig{Level: "info", Format: "text"},
		}
	}
	require.NoError(t, config.Validate(valid()))

	tcs := map[string]func(cfg *config.AppConfig){
		"listen":   func(cfg *config.AppConfig) { cfg.ListenAddr = "" },
		"tick":     func(cfg *config.AppConfig) { cfg.TickInterval = 0 },
		"frame":    func(cfg *config.AppConfig) { cfg.Pipeline.FrameInterval = -1 },
		"size":     func(cfg *config.AppConfig) { cfg.Pipeline.FrameHeight = 0 },
		"schedule": func(cfg *config.AppConfig) { cfg.Panels = config.PanelsConfig{File: "p.yaml", SaveSchedule: "often"} },
		"format":   func(cfg *config.AppConfig) { cfg.Log.Format = "xml" },
		"level":    func(cfg *config.AppConfig) { cfg.Log.Level = "trace" },
	}
	for name, mutate := range tcs {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			mutate(cfg)
			assert.Error(t, config.Validate(cfg))
		})
	}
	assert.Error(t, config.Validate(nil))
}
