package vision

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrUnknownPipeline = errors.New("unknown pipeline")
	ErrEmptyRegion     = errors.New("region does not intersect the frame")
)

// Pipeline transforms frames. Exported fields are the tunable parameters;
// Process reads them on every frame and may write some back.
type Pipeline interface {
	PipelineName() string
	Process(frame *Frame) (*Frame, error)
}

// Catalog maps pipeline names to constructors returning fresh instances.
type Catalog map[string]func() Pipeline

// DefaultCatalog lists the built-in pipelines.
func DefaultCatalog() Catalog {
	return Catalog{
		"threshold":   func() Pipeline { return NewThreshold() },
		"color-range": func() Pipeline { return NewColorRange() },
		"crop":        func() Pipeline { return NewCrop() },
		"blur":        func() Pipeline { return NewBlur() },
	}
}

// Names returns the catalog names sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// New builds a fresh instance of the named pipeline.
func (c Catalog) New(name string) (Pipeline, error) {
	ctor, ok := c[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownPipeline, name)
	}

	return ctor(), nil
}
