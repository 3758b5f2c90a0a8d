package tuner

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	NumericKind  = &Kind{Name: "numeric", New: newNumericHandler}
	DurationKind = &Kind{Name: "duration", New: newDurationHandler}
)

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// parseNumber converts raw into a value of t, which must have a numeric kind.
func parseNumber(t reflect.Type, raw string, lim Limits) (reflect.Value, error) {
	raw = strings.TrimSpace(raw)
	out := reflect.New(t).Elem()

	var f float64
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetInt(n)
		f = float64(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetUint(n)
		f = float64(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return out, err
		}
		out.SetFloat(n)
		f = n
	default:
		return out, errors.Errorf("%v is not numeric", t)
	}

	return out, lim.check(f)
}

func formatNumber(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	default:
		return ""
	}
}

// numberAsFloat reads any numeric value as a float64.
func numberAsFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

type numericHandler struct {
	noSelections
	typ reflect.Type
}

func newNumericHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if !isNumeric(t.Kind()) {
		return nil, errors.Errorf("%v is not numeric", t)
	}

	return numericHandler{typ: t}, nil
}

func (h numericHandler) Slots() []string { return []string{"value"} }

func (h numericHandler) Format(v reflect.Value) []string {
	return []string{formatNumber(v)}
}

func (h numericHandler) Parse(raw []string, lim Limits) (reflect.Value, error) {
	if err := checkArity(raw, 1); err != nil {
		return reflect.Value{}, err
	}
	out, err := parseNumber(h.typ, raw[0], lim)
	if err != nil {
		return reflect.Value{}, newParseError(0, raw[0], err)
	}

	return out, nil
}

type durationHandler struct {
	noSelections
	typ reflect.Type
}

func newDurationHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t.Kind() != reflect.Int64 {
		return nil, errors.Errorf("%v is not a duration", t)
	}

	return durationHandler{typ: t}, nil
}

func (h durationHandler) Slots() []string { return []string{"duration"} }

func (h durationHandler) Format(v reflect.Value) []string {
	return []string{time.Duration(v.Int()).String()}
}

func (h durationHandler) Parse(raw []string, lim Limits) (reflect.Value, error) {
	if err := checkArity(raw, 1); err != nil {
		return reflect.Value{}, err
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw[0]))
	if err == nil {
		err = lim.check(d.Seconds())
	}
	if err != nil {
		return reflect.Value{}, newParseError(0, raw[0], err)
	}
	out := reflect.New(h.typ).Elem()
	out.SetInt(int64(d))

	return out, nil
}
