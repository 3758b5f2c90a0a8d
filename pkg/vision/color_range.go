package vision

import (
	"image/color"

	"github.com/pkg/errors"
)

// Scalar holds one value per channel, in R, G, B, A order.
type Scalar [4]float64

func (s Scalar) contains(lower Scalar, c color.RGBA) bool {
	channels := [4]float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
	for i, v := range channels {
		if v < lower[i] || v > s[i] {
			return false
		}
	}

	return true
}

// ColorRange keeps the pixels whose channels all fall within [Lower, Upper]
// and paints them with Highlight.
type ColorRange struct {
	Lower     Scalar     `tune:"label=Lower bound" yaml:"lower"`
	Upper     Scalar     `tune:"label=Upper bound" yaml:"upper"`
	Highlight color.RGBA `yaml:"highlight"`
}

func NewColorRange() *ColorRange {
	return &ColorRange{
		Lower:     Scalar{0, 0, 0, 0},
		Upper:     Scalar{255, 255, 255, 255},
		Highlight: color.RGBA{G: 255, A: 255},
	}
}

func (*ColorRange) PipelineName() string { return "color-range" }

func (r *ColorRange) Process(frame *Frame) (*Frame, error) {
	if frame == nil || frame.Image == nil {
		return nil, errors.New("frame is empty")
	}
	lower, upper, highlight := r.Lower, r.Upper, r.Highlight

	bounds := frame.Image.Bounds()
	out := frame.derive(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if upper.contains(lower, frame.Image.RGBAAt(x, y)) {
				out.Image.SetRGBA(x, y, highlight)
			}
		}
	}

	return out, nil
}
