package vision

import (
	"image"
	"image/color"
	"time"
)

// Frame is one image flowing through a pipeline.
type Frame struct {
	Seq      uint64
	Captured time.Time
	Image    *image.RGBA
}

// NewFrame allocates a blank frame of the given size.
func NewFrame(seq uint64, width, height int) *Frame {
	return &Frame{
		Seq:      seq,
		Captured: time.Now(),
		Image:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// derive allocates a frame of the given bounds carrying the identity of f.
func (f *Frame) derive(bounds image.Rectangle) *Frame {
	return &Frame{
		Seq:      f.Seq,
		Captured: f.Captured,
		Image:    image.NewRGBA(bounds),
	}
}

// FrameSource produces the frame with sequence number seq.
type FrameSource func(seq uint64) *Frame

// GradientSource returns a source of diagonal gradients drifting by one
// pixel per frame.
func GradientSource(width, height int) FrameSource {
	return func(seq uint64) *Frame {
		frame := NewFrame(seq, width, height)
		span := width + height
		if span == 0 {
			return frame
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := uint8((x + y + int(seq%uint64(span))) % span * 255 / span)
				frame.Image.SetRGBA(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
			}
		}

		return frame
	}
}

func luma(c color.RGBA) uint8 {
	return uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000)
}
