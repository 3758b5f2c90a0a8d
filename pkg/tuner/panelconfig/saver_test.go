package panelconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/pkg/tuner/model"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
)

func TestNewSaverRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	_, err := panelconfig.NewSaver(panelconfig.New(), "every now and then", nil)
	assert.Error(t, err)
	_, err = panelconfig.NewSaver(nil, "@every 1s", nil)
	assert.Error(t, err)
}

func TestSaverSavesOnSchedule(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "panels.yaml")
	s := panelconfig.New(panelconfig.WithPath(path))
	require.NoError(t, s.ApplyGlobal(model.PanelConfig{Mode: model.SlidersMode}))

	saver, err := panelconfig.NewSaver(s, "@every 1s", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- saver.Run(ctx)
	}()

	require.Eventually(t, func() bool { return !s.Dirty() }, 5*time.Second, 10*time.Millisecond)
	_, err = os.Stat(path)
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)
}

func TestSaverSavesOnShutdown(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "panels.yaml")
	s := panelconfig.New(panelconfig.WithPath(path))
	saver, err := panelconfig.NewSaver(s, "@daily", nil)
	require.NoError(t, err)
	require.NoError(t, s.ApplyToKind("numeric", model.PanelConfig{Mode: model.SlidersMode}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, saver.Run(ctx))

	loaded, err := panelconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.SlidersMode, loaded.Resolve("numeric").Mode)
}
