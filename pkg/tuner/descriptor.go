package tuner

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const tagName = "tune"

// Instance is a live pipeline: a non-nil pointer to a struct whose exported
// fields are exposed for tuning.
type Instance = any

// FieldLister lets a pipeline restrict and order the fields exposed for tuning.
type FieldLister interface {
	TunableFields() []string
}

// Bound is one end of a numeric range, either a constant or the live value of
// a sibling field.
type Bound struct {
	Value float64
	Field string
	Set   bool
}

// Constraints are parsed from the `tune` struct tag, for example
// `tune:"label=Lower hue,min=0,max=High"`.
type Constraints struct {
	Label   string
	Min     Bound
	Max     Bound
	Choices []string
}

// Descriptor is the immutable description of one discovered field.
type Descriptor struct {
	Name        string
	Type        reflect.Type
	Index       []int
	Constraints Constraints

	tagErr error
}

// Label returns the display name of the field.
func (d Descriptor) Label() string {
	if d.Constraints.Label != "" {
		return d.Constraints.Label
	}

	return d.Name
}

// DependsOn returns the sibling fields bounding this one.
func (d Descriptor) DependsOn() []string {
	var deps []string
	if d.Constraints.Min.Field != "" {
		deps = append(deps, d.Constraints.Min.Field)
	}
	if d.Constraints.Max.Field != "" && d.Constraints.Max.Field != d.Constraints.Min.Field {
		deps = append(deps, d.Constraints.Max.Field)
	}

	return deps
}

// describe lists the exported fields of a pipeline type, one level deep.
func describe(pipelineType reflect.Type) ([]Descriptor, error) {
	if pipelineType == nil || pipelineType.Kind() != reflect.Pointer || pipelineType.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("pipeline type %v is not a pointer to a struct", pipelineType)
	}

	st := pipelineType.Elem()
	descs := make([]Descriptor, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup(tagName)
		if ok && tag == "-" {
			continue
		}
		c, err := parseTag(tag)
		descs = append(descs, Descriptor{
			Name:        sf.Name,
			Type:        sf.Type,
			Index:       sf.Index,
			Constraints: c,
			tagErr:      err,
		})
	}

	return descs, nil
}

func parseTag(tag string) (Constraints, error) {
	var c Constraints
	if strings.TrimSpace(tag) == "" {
		return c, nil
	}
	for _, part := range strings.Split(tag, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return c, errors.Errorf("malformed tune tag entry %q", part)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "label":
			c.Label = value
		case "min":
			c.Min = parseBound(value)
		case "max":
			c.Max = parseBound(value)
		case "choices":
			c.Choices = strings.Split(value, "|")
		default:
			return c, errors.Errorf("unknown tune tag key %q", key)
		}
	}

	return c, nil
}

func parseBound(value string) Bound {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Bound{Field: value, Set: true}
	}

	return Bound{Value: f, Set: true}
}

// orderFor applies the FieldLister of an instance, when it has one.
func orderFor(instance Instance, descs []Descriptor) []Descriptor {
	lister, ok := instance.(FieldLister)
	if !ok {
		return descs
	}

	byName := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}

	seen := make(map[string]struct{})
	ordered := make([]Descriptor, 0, len(descs))
	for _, name := range lister.TunableFields() {
		d, ok := byName[name]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ordered = append(ordered, d)
	}

	return ordered
}
