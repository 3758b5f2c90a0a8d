package tuner

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// ConfigResolver resolves the panel configuration of a kind.
type ConfigResolver interface {
	Resolve(kind string) model.PanelConfig
}

type staticConfig model.PanelConfig

func (c staticConfig) Resolve(string) model.PanelConfig {
	return model.PanelConfig(c)
}

// Field bridges one field of one live pipeline instance to typed slot and
// selection operations. Fields are not safe for concurrent use: the manager
// runs every operation on its task queue. Only the stale flag is shared.
type Field struct {
	desc     Descriptor
	kind     *Kind
	handler  Handler
	instance reflect.Value
	live     reflect.Value

	slots      []string
	selections []Selection

	display  []string
	selected []string
	swatch   string
	revision uint64
	config   model.PanelConfig
	local    *model.PanelConfig

	// hasDependents is set when a sibling uses this field as a bound.
	hasDependents bool
	reeval        bool
	stale         atomic.Bool
	info          *model.FieldInfo
}

func newField(instance Instance, desc Descriptor, kind *Kind) (field *Field, err error) {
	defer func() {
		if r := recover(); r != nil {
			field = nil
			err = errors.Wrapf(ErrConstruction, "%s: panic: %v", desc.Name, r)
		}
	}()

	if desc.tagErr != nil {
		return nil, errors.Wrapf(ErrConstruction, "%s: %v", desc.Name, desc.tagErr)
	}
	inst := reflect.ValueOf(instance)
	if inst.Kind() != reflect.Pointer || inst.IsNil() || inst.Elem().Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrConstruction, "%s: instance %T is not a pointer to a struct", desc.Name, instance)
	}
	live := inst.Elem().FieldByIndex(desc.Index)
	if !live.CanSet() {
		return nil, errors.Wrapf(ErrConstruction, "%s: field is not settable", desc.Name)
	}
	handler, err := kind.New(desc.Type, desc.Constraints)
	if err != nil {
		return nil, errors.Wrapf(ErrConstruction, "%s: %v", desc.Name, err)
	}

	f := &Field{
		desc:       desc,
		kind:       kind,
		handler:    handler,
		instance:   inst,
		live:       live,
		slots:      append([]string(nil), handler.Slots()...),
		selections: append([]Selection(nil), handler.Selections()...),
		config:     model.DefaultPanelConfig(),
	}
	f.read()

	return f, nil
}

// Name returns the field name.
func (f *Field) Name() string { return f.desc.Name }

// Kind returns the kind the field was resolved to.
func (f *Field) Kind() *Kind { return f.kind }

// Descriptor returns the discovered description of the field.
func (f *Field) Descriptor() Descriptor { return f.desc }

// Stale reports whether the field was bound to a superseded instance.
func (f *Field) Stale() bool { return f.stale.Load() }

func (f *Field) invalidate() { f.stale.Store(true) }

// BoundTo reports whether the field is bound to instance.
func (f *Field) BoundTo(instance Instance) bool {
	v := reflect.ValueOf(instance)

	return v.Kind() == reflect.Pointer && v.Pointer() == f.instance.Pointer()
}

// CurrentValue reads the live value of the field.
func (f *Field) CurrentValue() any {
	return f.live.Interface()
}

// SetSlotValue parses raw into one slot and writes the whole value. The other
// slots of a composite keep their displayed text; if any slot fails to parse
// nothing is written.
func (f *Field) SetSlotValue(slot int, raw string) error {
	if f.Stale() {
		return errors.Wrap(ErrStaleField, f.desc.Name)
	}
	if slot < 0 || slot >= len(f.slots) {
		return errors.Wrapf(ErrSlotIndex, "%s: slot %d", f.desc.Name, slot)
	}
	raws := append([]string(nil), f.display...)
	raws[slot] = raw

	return f.commit(raws)
}

// SetSlotValues parses one input per slot and writes the whole value.
func (f *Field) SetSlotValues(raw []string) error {
	if f.Stale() {
		return errors.Wrap(ErrStaleField, f.desc.Name)
	}
	if len(raw) != len(f.slots) {
		return errors.Wrapf(ErrSlotIndex, "%s: expected %d slot inputs, got %d", f.desc.Name, len(f.slots), len(raw))
	}

	return f.commit(append([]string(nil), raw...))
}

func (f *Field) commit(raw []string) error {
	v, err := f.handler.Parse(raw, f.limits())
	if err != nil {
		return errors.Wrap(err, f.desc.Name)
	}
	f.live.Set(v)
	f.Refresh()

	return nil
}

// SetSelection writes choice if it belongs to the domain of the selection slot.
func (f *Field) SetSelection(slot int, choice string) error {
	if f.Stale() {
		return errors.Wrap(ErrStaleField, f.desc.Name)
	}
	if slot < 0 || slot >= len(f.selections) {
		return errors.Wrapf(ErrSlotIndex, "%s: selection slot %d", f.desc.Name, slot)
	}
	if !f.selections[slot].contains(choice) {
		return errors.Wrapf(ErrInvalidChoice, "%s: %q", f.desc.Name, choice)
	}
	v, err := f.handler.Select(f.live, slot, choice)
	if err != nil {
		return errors.Wrap(err, f.desc.Name)
	}
	f.live.Set(v)
	f.Refresh()

	return nil
}

// Refresh re-reads the live value. It returns true, and bumps the revision so
// the panel gets re-rendered, when the formatted output changed. A change of a
// field bounding siblings requests a reevaluation of every panel configuration.
func (f *Field) Refresh() bool {
	if f.Stale() {
		return false
	}
	prevDisplay, prevSelected, prevSwatch := f.display, f.selected, f.swatch
	f.read()
	changed := !equalStrings(prevDisplay, f.display) || !equalStrings(prevSelected, f.selected) || prevSwatch != f.swatch
	if changed {
		f.revision++
		if f.hasDependents {
			f.reeval = true
		}
	}

	return changed
}

func (f *Field) read() {
	f.display = f.handler.Format(f.live)
	f.selected = f.handler.Selected(f.live)
	if sw, ok := f.handler.(swatcher); ok {
		f.swatch = sw.Swatch(f.live)
	}
}

// takeReevaluation returns whether the field asked for every panel
// configuration to be recomputed, and clears the request.
func (f *Field) takeReevaluation() bool {
	r := f.reeval
	f.reeval = false

	return r
}

// limits resolves the numeric bounds of the field, reading sibling bounds
// from the live instance.
func (f *Field) limits() Limits {
	var lim Limits
	lim.Min, lim.HasMin = f.bound(f.desc.Constraints.Min)
	lim.Max, lim.HasMax = f.bound(f.desc.Constraints.Max)

	return lim
}

func (f *Field) bound(b Bound) (float64, bool) {
	if !b.Set {
		return 0, false
	}
	if b.Field == "" {
		return b.Value, true
	}
	sibling := f.instance.Elem().FieldByName(b.Field)
	if !sibling.IsValid() {
		return 0, false
	}

	return numberAsFloat(sibling)
}

// ReevaluateConfig recomputes the panel configuration from resolver and the
// current bounds of the field.
func (f *Field) ReevaluateConfig(resolver ConfigResolver) {
	var cfg model.PanelConfig
	if f.local != nil {
		cfg = *f.local
		cfg.Source = model.LocalSource
	} else {
		cfg = resolver.Resolve(f.kind.Name)
	}
	lim := f.limits()
	if lim.HasMin {
		cfg.SliderRange.Min = lim.Min
	}
	if lim.HasMax {
		cfg.SliderRange.Max = lim.Max
	}
	if cfg != f.config {
		f.revision++
	}
	f.config = cfg
}

// SetLocalConfig pins a configuration to this panel only. A nil cfg falls
// back to the resolver on the next reevaluation.
func (f *Field) SetLocalConfig(cfg *model.PanelConfig) {
	if cfg == nil {
		f.local = nil

		return
	}
	local := *cfg
	f.local = &local
}

// Config returns the current panel configuration.
func (f *Field) Config() model.PanelConfig { return f.config }

// Revision increases every time the panel needs re-rendering.
func (f *Field) Revision() uint64 { return f.revision }

func (f *Field) spec() model.PanelSpec {
	slots := make([]model.SlotSpec, len(f.slots))
	for i, label := range f.slots {
		slots[i] = model.SlotSpec{Label: label, Value: f.display[i], Editable: !f.Stale()}
	}
	sels := make([]model.SelectionSpec, len(f.selections))
	for i, sel := range f.selections {
		sels[i] = model.SelectionSpec{
			Label:    sel.Label,
			Domain:   append([]string(nil), sel.Domain...),
			Selected: f.selected[i],
		}
	}

	return model.PanelSpec{
		FieldName:  f.desc.Name,
		Label:      f.desc.Label(),
		Type:       typeName(f.desc.Type),
		Kind:       f.kind.Name,
		Slots:      slots,
		Selections: sels,
		Config:     f.config,
		Swatch:     f.swatch,
		Revision:   f.revision,
	}
}

func (f *Field) fieldInfo(pipeline, generation string) *model.FieldInfo {
	if f.info == nil {
		f.info = &model.FieldInfo{
			Name:       f.desc.Name,
			Type:       typeName(f.desc.Type),
			Kind:       f.kind.Name,
			Pipeline:   pipeline,
			Generation: generation,
			DependsOn:  f.desc.DependsOn(),
			Slots:      len(f.slots),
			Selections: len(f.selections),
		}
	}

	return f.info
}

func typeName(t reflect.Type) string {
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}

	return fmt.Sprintf("%s.%s", t.PkgPath(), t.Name())
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
