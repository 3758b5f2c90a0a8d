package vision

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// Crop keeps Region shifted by Offset.
type Crop struct {
	Region image.Rectangle `yaml:"region"`
	Offset image.Point     `yaml:"offset"`
}

func NewCrop() *Crop {
	return &Crop{Region: image.Rect(0, 0, 64, 64)}
}

func (*Crop) PipelineName() string { return "crop" }

func (c *Crop) Process(frame *Frame) (*Frame, error) {
	if frame == nil || frame.Image == nil {
		return nil, errors.New("frame is empty")
	}
	region := c.Region.Canon().Add(c.Offset).Intersect(frame.Image.Bounds())
	if region.Empty() {
		return nil, errors.Wrapf(ErrEmptyRegion, "%v", region)
	}

	out := frame.derive(image.Rectangle{Max: region.Size()})
	draw.Draw(out.Image, out.Image.Bounds(), frame.Image, region.Min, draw.Src)

	return out, nil
}
