package vision_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/pkg/vision"
)

func writeDefinition(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	m := vision.NewManager(nil, nil)
	l := vision.NewLoader(path, m)
	assert.Error(t, l.Load())

	writeDefinition(t, path, "pipeline: blur\nparams:\n  radius: 3\n")
	require.NoError(t, l.Load())
	blur, ok := m.Pipeline().(*vision.Blur)
	require.True(t, ok)
	assert.Equal(t, 3, blur.Radius)
}

func TestLoaderReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	writeDefinition(t, path, "pipeline: threshold\n")

	m := vision.NewManager(nil, nil)
	reloads := make(chan error, 8)
	l := vision.NewLoader(path, m,
		vision.WithDebounce(20*time.Millisecond),
		vision.WithReloadHook(func(err error) {
			select {
			case reloads <- err:
			default:
			}
		}),
	)
	require.NoError(t, l.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- l.Run(ctx)
	}()

	// The watch is installed asynchronously; keep rewriting until it is seen.
	deadline := time.After(5 * time.Second)
	var got error
wait:
	for {
		writeDefinition(t, path, "pipeline: crop\n")
		select {
		case got = <-reloads:
			break wait
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("definition change was never reloaded")
		}
	}
	require.NoError(t, got)
	assert.Equal(t, "crop", m.Pipeline().PipelineName())

	writeDefinition(t, path, "pipeline: sobel\n")
	deadline = time.After(5 * time.Second)
	for got == nil {
		select {
		case got = <-reloads:
		case <-deadline:
			t.Fatal("broken definition was never reloaded")
		}
	}
	assert.ErrorIs(t, got, vision.ErrUnknownPipeline)
	assert.Equal(t, "crop", m.Pipeline().PipelineName())

	cancel()
	require.NoError(t, <-done)
}

func TestLoaderRunMissingDirectory(t *testing.T) {
	t.Parallel()

	l := vision.NewLoader(filepath.Join(t.TempDir(), "missing", "pipeline.yaml"), vision.NewManager(nil, nil))
	assert.Error(t, l.Run(context.Background()))
}
