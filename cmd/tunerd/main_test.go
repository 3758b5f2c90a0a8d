package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func TestPipelinesCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "pipelines")
	require.NoError(t, err)
	assert.Equal(t, "blur\ncolor-range\ncrop\nthreshold\n", out)
}

func TestFieldsCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "fields", "threshold")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Level")
	assert.Contains(t, out, "label: Threshold")
	assert.Contains(t, out, "kind: enum")
	assert.Contains(t, out, "- binary")

	_, err = execute(t, "fields", "sobel")
	assert.Error(t, err)
	_, err = execute(t, "fields")
	assert.Error(t, err)
}

func TestAppRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	definition := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(definition, []byte("pipeline: blur\nparams:\n  radius: 1\n"), 0o600))

	cfg := &config.AppConfig{
		ListenAddr:   "127.0.0.1:0",
		TickInterval: 5 * time.Millisecond,
		DOTPath:      filepath.Join(dir, "fields.dot"),
		Pipeline: config.PipelineConfig{
			DefinitionFile: definition,
			FrameInterval:  5 * time.Millisecond,
			FrameWidth:     16,
			FrameHeight:    16,
			Debounce:       10 * time.Millisecond,
		},
		Panels: config.PanelsConfig{File: filepath.Join(dir, "panels.yaml"), SaveSchedule: "@every 1s"},
		Log:    config.LogConfig{Level: "info", Format: "text"},
	}
	require.NoError(t, config.Validate(cfg))

	a, err := newApp(cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, a.run(ctx))

	assert.Equal(t, "blur", a.pipelines.Pipeline().PipelineName())
	assert.NotZero(t, a.processor.Processed())
	dot, err := os.ReadFile(cfg.DOTPath)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "Radius")
}
