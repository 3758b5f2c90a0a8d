package tuner

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint
)

var (
	PointKind  = &Kind{Name: "point", New: newPointHandler}
	RectKind   = &Kind{Name: "rect", New: newRectHandler}
	VectorKind = &Kind{Name: "vector", New: newVectorHandler}
	ColorKind  = &Kind{Name: "color", New: newColorHandler}
)

const maxVectorLen = 4

var (
	pointType = reflect.TypeOf(image.Point{})
	rectType  = reflect.TypeOf(image.Rectangle{})
	rgbaType  = reflect.TypeOf(color.RGBA{})
	intType   = reflect.TypeOf(0)
	uint8Type = reflect.TypeOf(uint8(0))
)

// parseAll parses every raw input with parse and stops at the first failure,
// so callers only ever see fully parsed composites.
func parseAll(raw []string, parse func(slot int, s string) (reflect.Value, error)) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(raw))
	for i, s := range raw {
		v, err := parse(i, s)
		if err != nil {
			return nil, newParseError(i, s, err)
		}
		out[i] = v
	}

	return out, nil
}

type pointHandler struct {
	noSelections
}

func newPointHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t != pointType {
		return nil, errors.Errorf("%v is not an image.Point", t)
	}

	return pointHandler{}, nil
}

func (pointHandler) Slots() []string { return []string{"x", "y"} }

func (pointHandler) Format(v reflect.Value) []string {
	p := v.Interface().(image.Point)

	return []string{strconv.Itoa(p.X), strconv.Itoa(p.Y)}
}

func (h pointHandler) Parse(raw []string, lim Limits) (reflect.Value, error) {
	if err := checkArity(raw, 2); err != nil {
		return reflect.Value{}, err
	}
	vals, err := parseAll(raw, func(_ int, s string) (reflect.Value, error) {
		return parseNumber(intType, s, lim)
	})
	if err != nil {
		return reflect.Value{}, err
	}

	return reflect.ValueOf(image.Pt(int(vals[0].Int()), int(vals[1].Int()))), nil
}

type rectHandler struct {
	noSelections
}

func newRectHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t != rectType {
		return nil, errors.Errorf("%v is not an image.Rectangle", t)
	}

	return rectHandler{}, nil
}

func (rectHandler) Slots() []string { return []string{"min x", "min y", "max x", "max y"} }

func (rectHandler) Format(v reflect.Value) []string {
	r := v.Interface().(image.Rectangle)

	return []string{
		strconv.Itoa(r.Min.X), strconv.Itoa(r.Min.Y),
		strconv.Itoa(r.Max.X), strconv.Itoa(r.Max.Y),
	}
}

func (h rectHandler) Parse(raw []string, lim Limits) (reflect.Value, error) {
	if err := checkArity(raw, 4); err != nil {
		return reflect.Value{}, err
	}
	vals, err := parseAll(raw, func(_ int, s string) (reflect.Value, error) {
		return parseNumber(intType, s, lim)
	})
	if err != nil {
		return reflect.Value{}, err
	}
	r := image.Rect(int(vals[0].Int()), int(vals[1].Int()), int(vals[2].Int()), int(vals[3].Int()))

	return reflect.ValueOf(r), nil
}

// vectorHandler edits short fixed-size numeric arrays, one slot per element.
type vectorHandler struct {
	noSelections
	typ    reflect.Type
	labels []string
}

func newVectorHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t.Kind() != reflect.Array || t.Len() == 0 || t.Len() > maxVectorLen || !isNumeric(t.Elem().Kind()) {
		return nil, errors.Errorf("%v is not a numeric vector of at most %d elements", t, maxVectorLen)
	}
	labels := make([]string, t.Len())
	for i := range labels {
		labels[i] = "v" + strconv.Itoa(i)
	}

	return vectorHandler{typ: t, labels: labels}, nil
}

func (h vectorHandler) Slots() []string { return h.labels }

func (h vectorHandler) Format(v reflect.Value) []string {
	out := make([]string, v.Len())
	for i := range out {
		out[i] = formatNumber(v.Index(i))
	}

	return out
}

func (h vectorHandler) Parse(raw []string, lim Limits) (reflect.Value, error) {
	if err := checkArity(raw, h.typ.Len()); err != nil {
		return reflect.Value{}, err
	}
	vals, err := parseAll(raw, func(_ int, s string) (reflect.Value, error) {
		return parseNumber(h.typ.Elem(), s, lim)
	})
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(h.typ).Elem()
	for i, v := range vals {
		out.Index(i).Set(v)
	}

	return out, nil
}

// colorHandler edits color.RGBA one channel per slot. Any slot also accepts a
// full colour literal such as "#ff8800" or "rgb(255,136,0)", which sets every
// channel at once.
type colorHandler struct {
	noSelections
}

func newColorHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t != rgbaType {
		return nil, errors.Errorf("%v is not a color.RGBA", t)
	}

	return colorHandler{}, nil
}

func (colorHandler) Slots() []string { return []string{"r", "g", "b", "a"} }

func (colorHandler) Format(v reflect.Value) []string {
	c := v.Interface().(color.RGBA)

	return []string{
		strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)),
		strconv.Itoa(int(c.B)), strconv.Itoa(int(c.A)),
	}
}

func isColorLiteral(s string) bool {
	s = strings.TrimSpace(s)

	return strings.HasPrefix(s, "#") || strings.Contains(s, "(")
}

func (h colorHandler) Parse(raw []string, _ Limits) (reflect.Value, error) {
	if err := checkArity(raw, 4); err != nil {
		return reflect.Value{}, err
	}
	for i, s := range raw {
		if !isColorLiteral(s) {
			continue
		}
		parsed, err := colors.Parse(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, newParseError(i, s, err)
		}
		rgba := parsed.ToRGBA()
		alpha := uint8(math.Round(rgba.A * 255))

		return reflect.ValueOf(color.RGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: alpha}), nil
	}

	vals, err := parseAll(raw, func(_ int, s string) (reflect.Value, error) {
		return parseNumber(uint8Type, s, Limits{})
	})
	if err != nil {
		return reflect.Value{}, err
	}
	c := color.RGBA{
		R: uint8(vals[0].Uint()), G: uint8(vals[1].Uint()),
		B: uint8(vals[2].Uint()), A: uint8(vals[3].Uint()),
	}

	return reflect.ValueOf(c), nil
}

// Swatch renders the colour as a hex literal for previews.
func (colorHandler) Swatch(v reflect.Value) string {
	c := v.Interface().(color.RGBA)
	rgb, err := colors.RGB(c.R, c.G, c.B)
	if err != nil {
		return ""
	}

	return rgb.ToHEX().String()
}
