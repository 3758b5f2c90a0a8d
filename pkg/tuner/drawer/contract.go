package drawer

import (
	"io"

	"github.com/askiada/go-tuner/pkg/tuner/measure"
	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// Drawer is an interface that defines the methods for drawing the field bindings of a pipeline.
type Drawer interface {
	// Reset drops every vertex and starts a new graph for pipeline.
	Reset(pipeline, generation string) error
	// AddField adds a field bound to the current pipeline.
	AddField(field *model.FieldInfo) error
	// AddDependency adds a link from a bounding field to the field it bounds.
	AddDependency(boundName, fieldName string) error
	// AddMeasure colours the field vertices with the refresh statistics of measure.
	AddMeasure(measure measure.Measure) error
	// Render writes the graph in DOT format.
	Render(w io.Writer) error
	// Draw creates a file with the graph.
	Draw() error
}
