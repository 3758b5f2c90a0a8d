package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-tuner/internal/store"
	"github.com/askiada/go-tuner/pkg/tuner/measure"
	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// DOTDrawer draws the pipeline, its bound fields and the bounds between them.
type DOTDrawer struct {
	mu          sync.Mutex
	graph       graph.Graph[string, string]
	vertices    store.CustomStore[string, string]
	pipeline    string
	fields      map[string]struct{}
	dotFileName string
}

// NewDOTDrawer creates a new DOT drawer writing to dotFileName on Draw.
func NewDOTDrawer(dotFileName string) *DOTDrawer {
	d := &DOTDrawer{dotFileName: dotFileName}
	d.init()

	return d
}

func (d *DOTDrawer) init() {
	d.vertices = store.NewMemoryStore[string, string]()
	d.graph = graph.NewWithStore(graph.StringHash, d.vertices, graph.Directed())
	d.fields = make(map[string]struct{})
	d.pipeline = ""
}

// Reset starts a new graph rooted at pipeline.
func (d *DOTDrawer) Reset(pipeline, generation string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.init()
	if pipeline == "" {
		return nil
	}
	d.pipeline = pipeline
	err := d.graph.AddVertex(pipeline,
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("style", "bold"),
		graph.VertexAttribute("xlabel", generation),
	)
	if err != nil {
		return errors.Wrap(err, "unable to add pipeline vertex")
	}

	return nil
}

// AddField adds a field vertex linked to the pipeline.
func (d *DOTDrawer) AddField(field *model.FieldInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.graph.AddVertex(field.Name, graph.VertexAttribute("xlabel", field.Kind))
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}
	d.fields[field.Name] = struct{}{}
	if d.pipeline == "" {
		return nil
	}
	err = d.graph.AddEdge(d.pipeline, field.Name)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", d.pipeline, field.Name)
	}

	return nil
}

// AddDependency adds a dashed link between a bounding field and the field it bounds.
func (d *DOTDrawer) AddDependency(boundName, fieldName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.graph.AddEdge(boundName, fieldName,
		graph.EdgeAttribute("style", "dashed"),
		graph.EdgeAttribute("label", "bounds"),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", boundName, fieldName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure colours each field from blue (cheapest refresh) to red (most expensive).
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := make(map[string]time.Duration)
	sorted := []time.Duration{}
	for name, mt := range msr.AllMetrics() {
		if _, ok := d.fields[name]; !ok {
			continue
		}
		avg := mt.AVGRefreshDuration()
		if avg == 0 {
			continue
		}
		elapsed[name] = avg
		sorted = append(sorted, avg)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] > sorted[j]
	})
	maxValue := sorted[0]
	minValue := sorted[len(sorted)-1]

	for name, avg := range elapsed {
		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(avg-minValue) / float64(maxValue-minValue)
		}
		red := maxRGB * fraction
		blue := maxRGB - maxRGB*fraction

		colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}
		err = d.vertices.UpdateVertex(name, func(p *graph.VertexProperties) {
			p.Attributes["color"] = colour.ToHEX().String()
			p.Attributes["xlabel"] += ", " + avg.String()
		})
		if err != nil {
			return errors.Wrapf(err, "unable to colour vertex %s", name)
		}
	}

	return nil
}

// Render writes the DOT description of the graph to wrt.
func (d *DOTDrawer) Render(wrt io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return dot(d.graph, wrt)
}

// Draw creates the DOT file. Without a file name it does nothing.
func (d *DOTDrawer) Draw() error {
	if d.dotFileName == "" {
		return nil
	}
	file, err := os.Create(d.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.dotFileName)
	}
	defer file.Close()

	err = d.Render(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.dotFileName)
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot[K comparable, T any](g graph.Graph[K, T], wrt io.Writer) error {
	desc, err := generateDOT(g)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

func generateDOT[K comparable, T any](gra graph.Graph[K, T]) (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]K, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	sort.Slice(vertices, func(i, j int) bool {
		return fmt.Sprint(vertices[i]) < fmt.Sprint(vertices[j])
	})

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)
		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%+v <BR /> <FONT POINT-SIZE="10">%s</FONT>>`, vertex, v)

				continue
			}
			attributes[k] = v
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		})

		for adjacency, edge := range adjacencyMap[vertex] {
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         adjacency,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
