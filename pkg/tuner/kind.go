package tuner

import (
	"reflect"

	"github.com/pkg/errors"
)

// Kind is a handler family able to edit a value type through a fixed
// arrangement of slots. New builds the handler for one concrete type.
type Kind struct {
	Name string
	New  func(t reflect.Type, c Constraints) (Handler, error)
}

// Handler edits values of one concrete type.
//
// Slots and Selections describe a fixed arrangement: the returned slices keep
// the same length for the whole life of the handler.
type Handler interface {
	// Slots returns the labels of the scalar slots.
	Slots() []string
	// Format renders v with one string per scalar slot.
	Format(v reflect.Value) []string
	// Parse converts one string per scalar slot into a new value. Nothing is
	// returned unless every slot parsed.
	Parse(raw []string, lim Limits) (reflect.Value, error)

	// Selections returns the labeled selection slots.
	Selections() []Selection
	// Selected renders the current choice of every selection slot.
	Selected(v reflect.Value) []string
	// Select returns a copy of current with the choice of one selection slot applied.
	Select(current reflect.Value, slot int, choice string) (reflect.Value, error)
}

// Selection is a labeled slot taking its value from a closed domain.
type Selection struct {
	Label  string
	Domain []string
}

func (s Selection) contains(choice string) bool {
	for _, d := range s.Domain {
		if d == choice {
			return true
		}
	}

	return false
}

// Limits bound the numeric components of a value at write time.
type Limits struct {
	Min, Max       float64
	HasMin, HasMax bool
}

func (l Limits) check(f float64) error {
	if l.HasMin && f < l.Min {
		return errors.Errorf("%v is below the minimum %v", f, l.Min)
	}
	if l.HasMax && f > l.Max {
		return errors.Errorf("%v is above the maximum %v", f, l.Max)
	}

	return nil
}

// swatcher is implemented by handlers able to render a colour preview.
type swatcher interface {
	Swatch(v reflect.Value) string
}

// noSelections is embedded by handlers made of scalar slots only.
type noSelections struct{}

func (noSelections) Selections() []Selection { return nil }

func (noSelections) Selected(reflect.Value) []string { return nil }

func (noSelections) Select(current reflect.Value, slot int, _ string) (reflect.Value, error) {
	return current, errors.Wrapf(ErrSlotIndex, "selection slot %d", slot)
}

// noSlots is embedded by handlers made of selection slots only.
type noSlots struct{}

func (noSlots) Slots() []string { return nil }

func (noSlots) Format(reflect.Value) []string { return nil }

func (noSlots) Parse(raw []string, _ Limits) (reflect.Value, error) {
	return reflect.Value{}, errors.Wrapf(ErrSlotIndex, "no scalar slot, got %d inputs", len(raw))
}

func checkArity(raw []string, want int) error {
	if len(raw) != want {
		return errors.Wrapf(ErrSlotIndex, "expected %d slot inputs, got %d", want, len(raw))
	}

	return nil
}
