package vision_test

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/vision"
)

func TestManagerLoadFiresOnce(t *testing.T) {
	t.Parallel()

	m := vision.NewManager(nil, nil)
	assert.Nil(t, m.Current())
	assert.Nil(t, m.Pipeline())

	var fired []tuner.Instance
	m.Changes().Subscribe(func(instance tuner.Instance) { fired = append(fired, instance) })

	require.NoError(t, m.Load("threshold"))
	require.Len(t, fired, 1)
	assert.Same(t, m.Current(), fired[0])
	first := m.Generation()
	assert.NotEmpty(t, first)

	require.NoError(t, m.Load("threshold"))
	require.Len(t, fired, 2)
	assert.NotSame(t, fired[0], fired[1])
	assert.NotEqual(t, first, m.Generation())

	assert.ErrorIs(t, m.Load("sobel"), vision.ErrUnknownPipeline)
	assert.Len(t, fired, 2)
	assert.Same(t, fired[1], m.Current())

	m.Unload()
	require.Len(t, fired, 3)
	assert.Nil(t, fired[2])
	assert.Nil(t, m.Current())
}

func TestManagerLoadDefinition(t *testing.T) {
	t.Parallel()

	m := vision.NewManager(nil, nil)
	def, err := vision.ParseDefinition([]byte(`
pipeline: threshold
params:
  level: 90
  mode: otsu
  foreground: {r: 1, g: 2, b: 3, a: 4}
`))
	require.NoError(t, err)
	require.NoError(t, m.LoadDefinition(def))

	p, ok := m.Pipeline().(*vision.Threshold)
	require.True(t, ok)
	assert.Equal(t, uint8(90), p.Level)
	assert.Equal(t, vision.OtsuThreshold, p.Mode)
	assert.Equal(t, uint8(3), p.Foreground.B)

	def, err = vision.ParseDefinition([]byte(`
pipeline: crop
params:
  region: {min: {x: 1, y: 2}, max: {x: 30, y: 40}}
`))
	require.NoError(t, err)
	require.NoError(t, m.LoadDefinition(def))
	crop, ok := m.Pipeline().(*vision.Crop)
	require.True(t, ok)
	assert.Equal(t, image.Rect(1, 2, 30, 40), crop.Region)
}

func TestManagerLoadDefinitionRejectsBadParams(t *testing.T) {
	t.Parallel()

	m := vision.NewManager(nil, nil)
	require.NoError(t, m.Load("blur"))
	before := m.Current()
	fired := 0
	m.Changes().Subscribe(func(tuner.Instance) { fired++ })

	tcs := map[string]string{
		"unknown param": "pipeline: blur\nparams:\n  sigma: 2\n",
		"bad enum":      "pipeline: threshold\nparams:\n  mode: adaptive\n",
		"bad type":      "pipeline: blur\nparams:\n  radius: wide\n",
	}
	for name, doc := range tcs {
		def, err := vision.ParseDefinition([]byte(doc))
		require.NoError(t, err, name)
		assert.Error(t, m.LoadDefinition(def), name)
	}
	assert.Zero(t, fired)
	assert.Same(t, before, m.Current())
}

func TestParseDefinitionErrors(t *testing.T) {
	t.Parallel()

	_, err := vision.ParseDefinition([]byte("params: {}\n"))
	assert.Error(t, err)
	_, err = vision.ParseDefinition([]byte("pipeline: [\n"))
	assert.Error(t, err)
	_, err = vision.ReadDefinition("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestManagerDrivesTuner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := vision.NewManager(nil, nil)
	require.NoError(t, source.Load("threshold"))

	tm, err := tuner.NewManager(source)
	require.NoError(t, err)
	require.NoError(t, tm.Initialize(ctx))

	snap := tm.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "Threshold", snap[0].Label)
	assert.Equal(t, "128", snap[0].Slots[0].Value)
	assert.Equal(t, "enum", snap[1].Kind)
	assert.Equal(t, "color", snap[2].Kind)

	require.NoError(t, tm.SetSlotValue(ctx, "Level", 0, "42"))
	assert.Equal(t, uint8(42), source.Pipeline().(*vision.Threshold).Level)

	require.NoError(t, source.Load("blur"))
	names := make([]string, 0, 3)
	for _, spec := range tm.Snapshot() {
		names = append(names, spec.FieldName)
	}
	assert.Equal(t, []string{"Radius", "MaxRadius", "Passes"}, names)
	assert.ErrorIs(t, tm.SetSlotValue(ctx, "Level", 0, "1"), tuner.ErrFieldNotFound)

	require.NoError(t, tm.SetSlotValue(ctx, "MaxRadius", 0, "4"))
	radius := tm.Snapshot()[0]
	assert.Equal(t, float64(4), radius.Config.SliderRange.Max)
	assert.ErrorIs(t, tm.SetSlotValue(ctx, "Radius", 0, "5"), tuner.ErrParse)
	require.NoError(t, tm.Dispose())
}
