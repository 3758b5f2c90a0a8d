package tuner

import (
	"image"
	"image/color"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Declaration statically associates a value type with a kind.
type Declaration struct {
	Type reflect.Type
	Kind *Kind
}

// Declare is a helper building a Declaration from a sample value.
func Declare(sample any, kind *Kind) Declaration {
	return Declaration{Type: reflect.TypeOf(sample), Kind: kind}
}

// DefaultDeclarations returns the built-in type to kind associations.
func DefaultDeclarations() []Declaration {
	return []Declaration{
		Declare(int(0), NumericKind),
		Declare(int8(0), NumericKind),
		Declare(int16(0), NumericKind),
		Declare(int32(0), NumericKind),
		Declare(int64(0), NumericKind),
		Declare(uint(0), NumericKind),
		Declare(uint8(0), NumericKind),
		Declare(uint16(0), NumericKind),
		Declare(uint32(0), NumericKind),
		Declare(uint64(0), NumericKind),
		Declare(float32(0), NumericKind),
		Declare(float64(0), NumericKind),
		Declare(false, BoolKind),
		Declare("", StringKind),
		Declare(time.Duration(0), DurationKind),
		Declare(image.Point{}, PointKind),
		Declare(image.Rectangle{}, RectKind),
		Declare(color.RGBA{}, ColorKind),
	}
}

type scanResult struct {
	descriptors []Descriptor
	kinds       map[reflect.Type]*Kind
}

// Registry maps value types to kinds. It is built once from its declarations
// and is immutable afterwards. A failed first build is sticky: the only way
// out is an explicit Rebuild.
type Registry struct {
	mu       sync.Mutex
	decls    []Declaration
	chain    *AcceptorChain
	kinds    map[reflect.Type]*Kind
	scans    map[reflect.Type]*scanResult
	built    bool
	buildErr error
	builds   int
	logger   *slog.Logger
}

// NewRegistry creates an unbuilt registry.
func NewRegistry(chain *AcceptorChain, decls ...Declaration) *Registry {
	if chain == nil {
		chain = NewAcceptorChain()
	}
	r := &Registry{
		chain:  chain,
		logger: slog.Default(),
	}
	r.decls = append(r.decls, decls...)

	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(NewAcceptorChain(DefaultAcceptors()...), DefaultDeclarations()...)
})

// DefaultRegistry returns the process-wide registry holding the built-in
// declarations and acceptors. It is built lazily by the first manager
// initialisation using it.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Chain returns the acceptor chain consulted after a registry miss.
func (r *Registry) Chain() *AcceptorChain {
	return r.chain
}

// Add appends declarations. It fails once the registry is successfully built.
func (r *Registry) Add(decls ...Declaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built && r.buildErr == nil {
		return errors.New("registry already built")
	}
	r.decls = append(r.decls, decls...)

	return nil
}

// Build builds the registry on the first call and returns the outcome of
// that first build on every later call.
func (r *Registry) Build() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.buildLocked()
}

// Rebuild discards the previous outcome and builds again from the same
// declarations. Scan caches are dropped.
func (r *Registry) Rebuild() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Warn("rebuilding type registry", "previous_builds", r.builds, "previous_error", r.buildErr)
	r.built = false
	r.buildErr = nil
	r.kinds = nil
	r.scans = nil

	return r.buildLocked()
}

// Built reports whether a build has been attempted and succeeded.
func (r *Registry) Built() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.built && r.buildErr == nil
}

func (r *Registry) buildLocked() error {
	if r.built {
		return r.buildErr
	}
	r.built = true
	r.builds++

	kinds := make(map[reflect.Type]*Kind, len(r.decls))
	for i, decl := range r.decls {
		if decl.Type == nil || decl.Kind == nil || decl.Kind.New == nil {
			r.buildErr = errors.Wrapf(ErrScanFailure, "declaration %d is incomplete", i)

			return r.buildErr
		}
		if prev, ok := kinds[decl.Type]; ok && prev != decl.Kind {
			r.buildErr = errors.Wrapf(ErrScanFailure, "type %v declared as both %q and %q", decl.Type, prev.Name, decl.Kind.Name)

			return r.buildErr
		}
		kinds[decl.Type] = decl.Kind
	}
	if err := r.chain.validate(); err != nil {
		r.buildErr = errors.Wrap(ErrScanFailure, err.Error())

		return r.buildErr
	}
	r.chain.Seal()

	r.kinds = kinds
	r.scans = make(map[reflect.Type]*scanResult)
	r.logger.Debug("type registry built", "types", len(kinds), "acceptors", len(r.chain.Names()))

	return nil
}

// Lookup returns the registered kind of t, without consulting acceptors.
func (r *Registry) Lookup(t reflect.Type) (*Kind, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind, ok := r.kinds[t]

	return kind, ok
}

// Resolve returns the kind of t from the registry, falling back to the
// acceptor chain.
func (r *Registry) Resolve(t reflect.Type) (*Kind, error) {
	if kind, ok := r.Lookup(t); ok {
		return kind, nil
	}
	if kind, ok := r.chain.Accept(t); ok {
		return kind, nil
	}

	return nil, errors.Wrapf(ErrUnsupportedType, "%v", t)
}

// Scan returns the registry mapping for every field type of pipelineType.
// Types without an exact mapping are absent. Results are cached per pipeline
// type and the registry is built on first use.
func (r *Registry) Scan(pipelineType reflect.Type) (map[reflect.Type]*Kind, error) {
	res, err := r.scan(pipelineType)
	if err != nil {
		return nil, err
	}
	out := make(map[reflect.Type]*Kind, len(res.kinds))
	for t, k := range res.kinds {
		out[t] = k
	}

	return out, nil
}

func (r *Registry) scan(pipelineType reflect.Type) (*scanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.buildLocked(); err != nil {
		return nil, err
	}
	if res, ok := r.scans[pipelineType]; ok {
		return res, nil
	}

	descs, err := describe(pipelineType)
	if err != nil {
		return nil, err
	}
	res := &scanResult{
		descriptors: descs,
		kinds:       make(map[reflect.Type]*Kind),
	}
	for _, d := range descs {
		if kind, ok := r.kinds[d.Type]; ok {
			res.kinds[d.Type] = kind
		}
	}
	r.scans[pipelineType] = res

	return res, nil
}
