package vision

import (
	"image/color"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ThresholdMode selects how Threshold separates pixels.
type ThresholdMode int

const (
	BinaryThreshold ThresholdMode = iota
	InverseThreshold
	// OtsuThreshold computes the level from each frame histogram and writes
	// it back to Threshold.Level.
	OtsuThreshold
)

var thresholdModes = []string{"binary", "inverse", "otsu"}

func (m ThresholdMode) String() string {
	if m < 0 || int(m) >= len(thresholdModes) {
		return "unknown"
	}

	return thresholdModes[m]
}

// Set parses a mode name.
func (m *ThresholdMode) Set(name string) error {
	for i, candidate := range thresholdModes {
		if candidate == name {
			*m = ThresholdMode(i)

			return nil
		}
	}

	return errors.Errorf("unknown threshold mode %q", name)
}

// Domain lists the mode names.
func (m *ThresholdMode) Domain() []string {
	return thresholdModes
}

func (m *ThresholdMode) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}

	return m.Set(name)
}

func (m ThresholdMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Threshold paints pixels brighter than Level with Foreground and the rest
// black.
type Threshold struct {
	Level      uint8         `tune:"label=Threshold,min=0,max=255" yaml:"level"`
	Mode       ThresholdMode `yaml:"mode"`
	Foreground color.RGBA    `yaml:"foreground"`
}

func NewThreshold() *Threshold {
	return &Threshold{
		Level:      128,
		Foreground: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (*Threshold) PipelineName() string { return "threshold" }

func (t *Threshold) Process(frame *Frame) (*Frame, error) {
	if frame == nil || frame.Image == nil {
		return nil, errors.New("frame is empty")
	}
	bounds := frame.Image.Bounds()
	if t.Mode == OtsuThreshold {
		t.Level = otsuLevel(frame)
	}
	level, fg, inverse := t.Level, t.Foreground, t.Mode == InverseThreshold
	background := color.RGBA{A: 255}

	out := frame.derive(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			bright := luma(frame.Image.RGBAAt(x, y)) > level
			if bright != inverse {
				out.Image.SetRGBA(x, y, fg)
			} else {
				out.Image.SetRGBA(x, y, background)
			}
		}
	}

	return out, nil
}

// otsuLevel maximises the between-class variance of the luma histogram.
func otsuLevel(frame *Frame) uint8 {
	var hist [256]int
	bounds := frame.Image.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[luma(frame.Image.RGBAAt(x, y))]++
		}
	}
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}
	var (
		sumBack    float64
		weightBack int
		best       float64
		level      uint8
	)
	for i, n := range hist {
		weightBack += n
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i * n)
		meanBack := sumBack / float64(weightBack)
		meanFore := (sum - sumBack) / float64(weightFore)
		between := float64(weightBack) * float64(weightFore) * (meanBack - meanFore) * (meanBack - meanFore)
		if between > best {
			best = between
			level = uint8(i)
		}
	}

	return level
}
