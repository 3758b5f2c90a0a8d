package api

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/tuner/model"
	"github.com/askiada/go-tuner/pkg/tuner/panelconfig"
)

type healthResponse struct {
	State      string `json:"state"`
	Generation string `json:"generation"`
	Fields     int    `json:"fields"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	status := http.StatusOK
	if s.tuner.State() == tuner.Disposed {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		State:      s.tuner.State().String(),
		Generation: s.tuner.Generation(),
		Fields:     len(s.tuner.Snapshot()),
	})
}

func (s *Server) listFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tuner.Snapshot())
}

func (s *Server) getField(w http.ResponseWriter, r *http.Request) {
	spec, err := s.field(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, err)

		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) field(name string) (model.PanelSpec, error) {
	for _, spec := range s.tuner.Snapshot() {
		if spec.FieldName == name {
			return spec, nil
		}
	}

	return model.PanelSpec{}, errors.Wrap(tuner.ErrFieldNotFound, name)
}

type slotRequest struct {
	Value string `json:"value"`
}

type slotsRequest struct {
	Values []string `json:"values"`
}

type selectionRequest struct {
	Choice string `json:"choice"`
}

func slotParam(r *http.Request) (int, error) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		return 0, errors.Wrapf(errBadRequest, "invalid slot %q", chi.URLParam(r, "slot"))
	}

	return slot, nil
}

func (s *Server) setSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeError(w, err)

		return
	}
	var req slotRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	name := chi.URLParam(r, "field")
	s.respondField(w, name, s.tuner.SetSlotValue(r.Context(), name, slot, req.Value))
}

func (s *Server) setSlots(w http.ResponseWriter, r *http.Request) {
	var req slotsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	name := chi.URLParam(r, "field")
	s.respondField(w, name, s.tuner.SetSlotValues(r.Context(), name, req.Values))
}

func (s *Server) setSelection(w http.ResponseWriter, r *http.Request) {
	slot, err := slotParam(r)
	if err != nil {
		writeError(w, err)

		return
	}
	var req selectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	name := chi.URLParam(r, "field")
	s.respondField(w, name, s.tuner.SetSelection(r.Context(), name, slot, req.Choice))
}

func (s *Server) setFieldConfig(w http.ResponseWriter, r *http.Request) {
	var req model.PanelConfig
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	cfg, err := panelconfig.Normalize(req)
	if err != nil {
		writeError(w, err)

		return
	}
	name := chi.URLParam(r, "field")
	s.respondField(w, name, s.tuner.SetPanelConfig(r.Context(), name, &cfg))
}

func (s *Server) clearFieldConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	s.respondField(w, name, s.tuner.SetPanelConfig(r.Context(), name, nil))
}

// respondField answers a write with the refreshed panel of the field.
func (s *Server) respondField(w http.ResponseWriter, name string, err error) {
	if err != nil {
		writeError(w, err)

		return
	}
	spec, err := s.field(name)
	if err != nil {
		writeError(w, err)

		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) diagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tuner.Diagnostics())
}

type pipelinesResponse struct {
	Available  []string `json:"available"`
	Active     string   `json:"active,omitempty"`
	Generation string   `json:"generation,omitempty"`
}

func (s *Server) pipelinesState() pipelinesResponse {
	resp := pipelinesResponse{Available: s.pipelines.Catalog().Names()}
	if p := s.pipelines.Pipeline(); p != nil {
		resp.Active = p.PipelineName()
		resp.Generation = s.pipelines.Generation()
	}

	return resp
}

func (s *Server) listPipelines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipelinesState())
}

func (s *Server) loadPipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.pipelines.Load(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)

		return
	}
	writeJSON(w, http.StatusOK, s.pipelinesState())
}

func (s *Server) unloadPipeline(w http.ResponseWriter, _ *http.Request) {
	s.pipelines.Unload()
	writeJSON(w, http.StatusOK, s.pipelinesState())
}

func (s *Server) getPanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.panels.Document())
}

func (s *Server) applyGlobal(w http.ResponseWriter, r *http.Request) {
	var req model.PanelConfig
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	s.respondPanels(w, r, s.panels.ApplyGlobal(req))
}

func (s *Server) applyToKind(w http.ResponseWriter, r *http.Request) {
	var req model.PanelConfig
	if err := decode(r, &req); err != nil {
		writeError(w, err)

		return
	}
	s.respondPanels(w, r, s.panels.ApplyToKind(chi.URLParam(r, "kind"), req))
}

func (s *Server) clearKind(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !s.panels.ClearKind(kind) {
		writeError(w, errors.Wrapf(errNotFound, "no configuration for kind %s", kind))

		return
	}
	s.respondPanels(w, r, nil)
}

// respondPanels pushes a panel store change to every active panel.
func (s *Server) respondPanels(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, err)

		return
	}
	if err := s.tuner.ReevaluateConfigs(r.Context()); err != nil {
		writeError(w, err)

		return
	}
	writeJSON(w, http.StatusOK, s.panels.Document())
}

func (s *Server) graph(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.drawer.Render(&buf); err != nil {
		writeError(w, err)

		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) frame(w http.ResponseWriter, _ *http.Request) {
	frame := s.processor.Last()
	if frame == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no frame processed yet"})

		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image); err != nil {
		writeError(w, err)

		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	_, _ = w.Write(buf.Bytes())
}
