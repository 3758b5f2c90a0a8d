package tuner

import (
	"encoding"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// Choice is implemented, on the pointer receiver, by enumerated value types.
// Set must reject anything outside Domain.
type Choice interface {
	String() string
	Set(choice string) error
	Domain() []string
}

var (
	BoolKind   = &Kind{Name: "bool", New: newBoolHandler}
	StringKind = &Kind{Name: "string", New: newStringHandler}
	EnumKind   = &Kind{Name: "enum", New: newEnumHandler}
	TextKind   = &Kind{Name: "text", New: newTextHandler}
)

var (
	choiceType          = reflect.TypeOf((*Choice)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

type boolHandler struct {
	noSlots
	typ reflect.Type
}

func newBoolHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if t.Kind() != reflect.Bool {
		return nil, errors.Errorf("%v is not a bool", t)
	}

	return boolHandler{typ: t}, nil
}

func (h boolHandler) Selections() []Selection {
	return []Selection{{Label: "enabled", Domain: []string{"false", "true"}}}
}

func (h boolHandler) Selected(v reflect.Value) []string {
	return []string{strconv.FormatBool(v.Bool())}
}

func (h boolHandler) Select(current reflect.Value, slot int, choice string) (reflect.Value, error) {
	if slot != 0 {
		return current, errors.Wrapf(ErrSlotIndex, "selection slot %d", slot)
	}
	b, err := strconv.ParseBool(choice)
	if err != nil || (choice != "true" && choice != "false") {
		return current, errors.Wrapf(ErrInvalidChoice, "%q", choice)
	}
	out := reflect.New(h.typ).Elem()
	out.SetBool(b)

	return out, nil
}

// stringHandler edits free text, or a closed list when the tag declares choices.
type stringHandler struct {
	typ     reflect.Type
	choices []string
}

func newStringHandler(t reflect.Type, c Constraints) (Handler, error) {
	if t.Kind() != reflect.String {
		return nil, errors.Errorf("%v is not a string", t)
	}

	return stringHandler{typ: t, choices: c.Choices}, nil
}

func (h stringHandler) Slots() []string {
	if len(h.choices) > 0 {
		return nil
	}

	return []string{"text"}
}

func (h stringHandler) Format(v reflect.Value) []string {
	if len(h.choices) > 0 {
		return nil
	}

	return []string{v.String()}
}

func (h stringHandler) Parse(raw []string, _ Limits) (reflect.Value, error) {
	if len(h.choices) > 0 {
		return reflect.Value{}, errors.Wrap(ErrSlotIndex, "string with choices has no scalar slot")
	}
	if err := checkArity(raw, 1); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(h.typ).Elem()
	out.SetString(raw[0])

	return out, nil
}

func (h stringHandler) Selections() []Selection {
	if len(h.choices) == 0 {
		return nil
	}

	return []Selection{{Label: "choice", Domain: h.choices}}
}

func (h stringHandler) Selected(v reflect.Value) []string {
	if len(h.choices) == 0 {
		return nil
	}

	return []string{v.String()}
}

func (h stringHandler) Select(current reflect.Value, slot int, choice string) (reflect.Value, error) {
	sels := h.Selections()
	if slot < 0 || slot >= len(sels) {
		return current, errors.Wrapf(ErrSlotIndex, "selection slot %d", slot)
	}
	if !sels[slot].contains(choice) {
		return current, errors.Wrapf(ErrInvalidChoice, "%q", choice)
	}
	out := reflect.New(h.typ).Elem()
	out.SetString(choice)

	return out, nil
}

// enumHandler edits types implementing Choice.
type enumHandler struct {
	noSlots
	typ    reflect.Type
	domain []string
}

func newEnumHandler(t reflect.Type, _ Constraints) (Handler, error) {
	if !reflect.PointerTo(t).Implements(choiceType) {
		return nil, errors.Errorf("%v does not implement Choice", t)
	}
	domain := reflect.New(t).Interface().(Choice).Domain()
	if len(domain) == 0 {
		return nil, errors.Errorf("%v has an empty domain", t)
	}

	return enumHandler{typ: t, domain: append([]string(nil), domain...)}, nil
}

func (h enumHandler) asChoice(v reflect.Value) (reflect.Value, Choice) {
	ptr := reflect.New(h.typ)
	ptr.Elem().Set(v)

	return ptr, ptr.Interface().(Choice)
}

func (h enumHandler) Selections() []Selection {
	return []Selection{{Label: h.typ.Name(), Domain: h.domain}}
}

func (h enumHandler) Selected(v reflect.Value) []string {
	_, c := h.asChoice(v)

	return []string{c.String()}
}

func (h enumHandler) Select(current reflect.Value, slot int, choice string) (reflect.Value, error) {
	if slot != 0 {
		return current, errors.Wrapf(ErrSlotIndex, "selection slot %d", slot)
	}
	if !h.Selections()[0].contains(choice) {
		return current, errors.Wrapf(ErrInvalidChoice, "%q", choice)
	}
	ptr, c := h.asChoice(current)
	if err := c.Set(choice); err != nil {
		return current, errors.Wrapf(ErrInvalidChoice, "%q: %v", choice, err)
	}

	return ptr.Elem(), nil
}

// textHandler edits types implementing the encoding text interfaces.
type textHandler struct {
	noSelections
	typ reflect.Type
}

func newTextHandler(t reflect.Type, _ Constraints) (Handler, error) {
	ptr := reflect.PointerTo(t)
	if !ptr.Implements(textMarshalerType) || !ptr.Implements(textUnmarshalerType) {
		return nil, errors.Errorf("%v does not implement the text encoding interfaces", t)
	}

	return textHandler{typ: t}, nil
}

func (h textHandler) Slots() []string { return []string{"text"} }

func (h textHandler) Format(v reflect.Value) []string {
	ptr := reflect.New(h.typ)
	ptr.Elem().Set(v)
	b, err := ptr.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return []string{""}
	}

	return []string{string(b)}
}

func (h textHandler) Parse(raw []string, _ Limits) (reflect.Value, error) {
	if err := checkArity(raw, 1); err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(h.typ)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw[0])); err != nil {
		return reflect.Value{}, newParseError(0, raw[0], err)
	}

	return ptr.Elem(), nil
}
