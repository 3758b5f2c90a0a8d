package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-tuner/internal/api"
	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/tuner/drawer"
	"github.com/askiada/go-tuner/pkg/tuner/measure"
	"github.com/askiada/go-tuner/pkg/tuner/model"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
	"github.com/askiada/go-tuner/pkg/vision"
)

type fixture struct {
	server    *httptest.Server
	tuner     *tuner.Manager
	pipelines *vision.Manager
	panels    *panelconfig.Store
	processor *vision.Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pipelines := vision.NewManager(nil, nil)
	require.NoError(t, pipelines.Load("threshold"))
	panels := panelconfig.New()

	reg := prometheus.NewRegistry()
	pm, err := measure.NewPromMeasure(reg)
	require.NoError(t, err)
	dot := drawer.NewDOTDrawer("")

	tm, err := tuner.NewManager(pipelines,
		tuner.WithConfigResolver(panels),
		tuner.WithTunerOptions(measure.TunerMeasure(pm), drawer.TunerDrawer(dot, pm)),
	)
	require.NoError(t, err)
	require.NoError(t, tm.Initialize(context.Background()))

	processor, err := vision.NewProcessor(pipelines)
	require.NoError(t, err)

	srv, err := api.NewServer(tm, pipelines, panels,
		api.WithProcessor(processor),
		api.WithDrawer(dot),
		api.WithGatherer(reg),
	)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, tuner: tm, pipelines: pipelines, panels: panels, processor: processor}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := api.NewServer(nil, nil, nil)
	assert.Error(t, err)
}

func TestListAndGetFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/api/fields", "")
	require.Equal(t, http.StatusOK, status)
	var specs []model.PanelSpec
	require.NoError(t, json.Unmarshal(body, &specs))
	require.Len(t, specs, 3)
	assert.Equal(t, "Level", specs[0].FieldName)
	assert.Equal(t, "128", specs[0].Slots[0].Value)

	status, body = f.do(t, http.MethodGet, "/api/fields/Mode", "")
	require.Equal(t, http.StatusOK, status)
	var mode model.PanelSpec
	require.NoError(t, json.Unmarshal(body, &mode))
	assert.Equal(t, []string{"binary", "inverse", "otsu"}, mode.Selections[0].Domain)

	status, _ = f.do(t, http.MethodGet, "/api/fields/Missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFieldWrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tcs := map[string]struct {
		method, path, body string
		want               int
	}{
		"slot":            {http.MethodPut, "/api/fields/Level/slots/0", `{"value":"42"}`, http.StatusOK},
		"slot parse":      {http.MethodPut, "/api/fields/Level/slots/0", `{"value":"300"}`, http.StatusBadRequest},
		"slot index":      {http.MethodPut, "/api/fields/Level/slots/3", `{"value":"1"}`, http.StatusBadRequest},
		"slot not number": {http.MethodPut, "/api/fields/Level/slots/x", `{"value":"1"}`, http.StatusBadRequest},
		"bad body":        {http.MethodPut, "/api/fields/Level/slots/0", `{"val":"1"}`, http.StatusBadRequest},
		"unknown field":   {http.MethodPut, "/api/fields/Gamma/slots/0", `{"value":"1"}`, http.StatusNotFound},
		"slots":           {http.MethodPut, "/api/fields/Foreground/slots", `{"values":["1","2","3","4"]}`, http.StatusOK},
		"slots arity":     {http.MethodPut, "/api/fields/Foreground/slots", `{"values":["1"]}`, http.StatusBadRequest},
		"selection":       {http.MethodPut, "/api/fields/Mode/selections/0", `{"choice":"inverse"}`, http.StatusOK},
		"bad choice":      {http.MethodPut, "/api/fields/Mode/selections/0", `{"choice":"adaptive"}`, http.StatusBadRequest},
	}
	for name, tc := range tcs {
		status, body := f.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, status, "%s: %s", name, body)
	}

	threshold := f.pipelines.Pipeline().(*vision.Threshold)
	assert.Equal(t, uint8(42), threshold.Level)
	assert.Equal(t, vision.InverseThreshold, threshold.Mode)
	assert.Equal(t, uint8(4), threshold.Foreground.A)

	status, body := f.do(t, http.MethodGet, "/api/diagnostics", "")
	require.Equal(t, http.StatusOK, status)
	var diags []model.Diagnostic
	require.NoError(t, json.Unmarshal(body, &diags))
	assert.NotEmpty(t, diags)
}

func TestFieldConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.do(t, http.MethodPut, "/api/fields/Foreground/config", `{"mode":"sliders","colorSpace":"hsv"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var spec model.PanelSpec
	require.NoError(t, json.Unmarshal(body, &spec))
	assert.Equal(t, model.LocalSource, spec.Config.Source)
	assert.Equal(t, model.HSVColorSpace, spec.Config.ColorSpace)

	status, _ = f.do(t, http.MethodPut, "/api/fields/Foreground/config", `{"mode":"dials"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodDelete, "/api/fields/Foreground/config", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &spec))
	assert.Equal(t, model.GlobalSource, spec.Config.Source)
}

func TestPanels(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.do(t, http.MethodPut, "/api/panels/kinds/color", `{"mode":"sliders"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var doc panelconfig.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Contains(t, doc.Kinds, "color")

	_, body = f.do(t, http.MethodGet, "/api/fields/Foreground", "")
	var spec model.PanelSpec
	require.NoError(t, json.Unmarshal(body, &spec))
	assert.Equal(t, model.TypeSource, spec.Config.Source)
	assert.Equal(t, model.SlidersMode, spec.Config.Mode)

	status, _ = f.do(t, http.MethodPut, "/api/panels/global", `{"sliderRange":{"min":5,"max":1}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPut, "/api/panels/global", `{"mode":"sliders"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.SlidersMode, f.panels.Global().Mode)

	status, _ = f.do(t, http.MethodDelete, "/api/panels/kinds/color", "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodDelete, "/api/panels/kinds/color", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodGet, "/api/panels", "")
	require.Equal(t, http.StatusOK, status)
	var after panelconfig.Document
	require.NoError(t, json.Unmarshal(body, &after))
	assert.Empty(t, after.Kinds)
}

func TestPipelines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/api/pipelines", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"active":"threshold"`)

	status, body = f.do(t, http.MethodPost, "/api/pipelines/blur", "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"active":"blur"`)

	_, body = f.do(t, http.MethodGet, "/api/fields", "")
	var specs []model.PanelSpec
	require.NoError(t, json.Unmarshal(body, &specs))
	require.Len(t, specs, 3)
	assert.Equal(t, "Radius", specs[0].FieldName)

	status, _ = f.do(t, http.MethodPost, "/api/pipelines/sobel", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodDelete, "/api/pipelines/active", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(body), "active")
	assert.Empty(t, f.tuner.Snapshot())
}

func TestGraphMetricsAndHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/api/graph", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"threshold"`)
	assert.Contains(t, string(body), `"Level"`)

	status, body = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "tuner_fields_active 3")

	status, body = f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"state":"ready"`)

	require.NoError(t, f.tuner.Dispose())
	status, _ = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = f.do(t, http.MethodPut, "/api/fields/Level/slots/0", `{"value":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestFrame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, _ := f.do(t, http.MethodGet, "/frame.png", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- f.processor.Run(ctx)
	}()
	require.Eventually(t, func() bool { return f.processor.Last() != nil }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	status, body := f.do(t, http.MethodGet, "/frame.png", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "\x89PNG", string(body[:4]))
}
