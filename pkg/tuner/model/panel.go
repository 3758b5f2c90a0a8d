package model

import "time"

// PanelMode selects how the scalar slots of a panel are rendered.
type PanelMode string

const (
	TextboxesMode PanelMode = "textboxes"
	SlidersMode   PanelMode = "sliders"
)

// ColorSpace is the colour space a viewport colour picker converts to before
// filling the slots of a colour-like field.
type ColorSpace string

const (
	RGBColorSpace   ColorSpace = "rgb"
	HSVColorSpace   ColorSpace = "hsv"
	YCrCbColorSpace ColorSpace = "ycrcb"
	LabColorSpace   ColorSpace = "lab"
)

// ConfigSource records where a panel configuration was resolved from.
type ConfigSource string

const (
	LocalSource  ConfigSource = "local"
	GlobalSource ConfigSource = "global"
	TypeSource   ConfigSource = "type"
)

// SliderRange is the inclusive range offered by slider controls.
type SliderRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Valid reports whether the range is usable by a slider.
func (r SliderRange) Valid() bool {
	return r.Max > r.Min
}

// PanelConfig holds the presentation options of one field panel.
type PanelConfig struct {
	SliderRange SliderRange  `json:"sliderRange" yaml:"slider_range"`
	Mode        PanelMode    `json:"mode" yaml:"mode"`
	ColorSpace  ColorSpace   `json:"colorSpace" yaml:"color_space"`
	Source      ConfigSource `json:"source" yaml:"-"`
}

// DefaultPanelConfig is used when no global configuration was provided.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		SliderRange: SliderRange{Min: 0, Max: 255},
		Mode:        TextboxesMode,
		ColorSpace:  RGBColorSpace,
		Source:      GlobalSource,
	}
}

// SlotSpec describes one scalar slot of a panel.
type SlotSpec struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Editable bool   `json:"editable"`
}

// SelectionSpec describes one selection slot of a panel.
type SelectionSpec struct {
	Label    string   `json:"label"`
	Domain   []string `json:"domain"`
	Selected string   `json:"selected"`
}

// PanelSpec is the display-ready description of one tunable field.
// The callbacks route writes through the manager task queue and are safe to
// call from any goroutine.
type PanelSpec struct {
	FieldName  string          `json:"fieldName"`
	Label      string          `json:"label"`
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	Slots      []SlotSpec      `json:"slots"`
	Selections []SelectionSpec `json:"selections"`
	Config     PanelConfig     `json:"config"`
	Swatch     string          `json:"swatch,omitempty"`
	Revision   uint64          `json:"revision"`

	SetSlotValue  func(slot int, raw string) error    `json:"-"`
	SetSlotValues func(raw []string) error            `json:"-"`
	SetSelection  func(slot int, choice string) error `json:"-"`
}

// Diagnostic is a structured, non-fatal per-field failure.
type Diagnostic struct {
	FieldName string    `json:"fieldName"`
	Cause     string    `json:"cause"`
	Time      time.Time `json:"time"`

	Err error `json:"-"`
}
