package tuner

import (
	"log/slog"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-tuner/internal/store"
)

// dependencyOrder orders fields so that every field comes after the siblings
// bounding it. Edges that would close a cycle, or point at a field that is
// not part of the set, are dropped and logged.
func dependencyOrder(fields []*Field, logger *slog.Logger) ([]*Field, error) {
	position := make(map[string]int, len(fields))
	byName := make(map[string]*Field, len(fields))
	g := graph.NewWithStore(graph.StringHash, store.NewMemoryStore[string, string](), graph.Directed(), graph.PreventCycles())
	for i, f := range fields {
		f.hasDependents = false
		position[f.Name()] = i
		byName[f.Name()] = f
		if err := g.AddVertex(f.Name()); err != nil {
			return nil, errors.Wrapf(err, "unable to add field %s", f.Name())
		}
	}

	for _, f := range fields {
		for _, dep := range f.desc.DependsOn() {
			bound, ok := byName[dep]
			if !ok {
				logger.Warn("bound refers to an unknown field", "field", f.Name(), "bound", dep)

				continue
			}
			bound.hasDependents = true
			if err := g.AddEdge(dep, f.Name()); err != nil {
				logger.Warn("dropping bound dependency", "field", f.Name(), "bound", dep, "error", err)
			}
		}
	}

	names, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to sort field dependencies")
	}

	out := make([]*Field, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}

	return out, nil
}
