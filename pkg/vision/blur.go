package vision

import (
	"image/color"

	"github.com/pkg/errors"
)

// Blur applies Passes box blurs of the given Radius. A Radius above
// MaxRadius is clamped, and the clamped value is written back.
type Blur struct {
	Radius    int   `tune:"label=Radius,min=0,max=MaxRadius" yaml:"radius"`
	MaxRadius int   `tune:"label=Max radius,min=1,max=32" yaml:"max_radius"`
	Passes    uint8 `tune:"min=1,max=4" yaml:"passes"`
}

func NewBlur() *Blur {
	return &Blur{Radius: 2, MaxRadius: 8, Passes: 1}
}

func (*Blur) PipelineName() string { return "blur" }

func (b *Blur) Process(frame *Frame) (*Frame, error) {
	if frame == nil || frame.Image == nil {
		return nil, errors.New("frame is empty")
	}
	if b.Radius > b.MaxRadius {
		b.Radius = b.MaxRadius
	}
	radius, passes := b.Radius, int(b.Passes)
	if radius <= 0 || passes == 0 {
		out := frame.derive(frame.Image.Bounds())
		copy(out.Image.Pix, frame.Image.Pix)

		return out, nil
	}

	out := frame
	for i := 0; i < passes; i++ {
		out = boxBlur(out, radius)
	}

	return out, nil
}

func boxBlur(frame *Frame, radius int) *Frame {
	bounds := frame.Image.Bounds()
	out := frame.derive(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var r, g, b, a, n uint32
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					px, py := x+dx, y+dy
					if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
						continue
					}
					c := frame.Image.RGBAAt(px, py)
					r += uint32(c.R)
					g += uint32(c.G)
					b += uint32(c.B)
					a += uint32(c.A)
					n++
				}
			}
			out.Image.SetRGBA(x, y, color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: uint8(a / n)})
		}
	}

	return out
}
