package tuner

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrScanFailure     = errors.New("type registry build failed")
	ErrUnsupportedType = errors.New("unsupported field type")
	ErrConstruction    = errors.New("unable to construct tunable field")
	ErrParse           = errors.New("unable to parse slot input")
	ErrInvalidChoice   = errors.New("choice is not part of the domain")
	ErrStaleField      = errors.New("field is bound to a superseded pipeline instance")
	ErrSlotIndex       = errors.New("slot index out of range")
	ErrFieldNotFound   = errors.New("field not found")
	ErrChainSealed     = errors.New("acceptor chain is sealed")
	ErrDisposed        = errors.New("manager is disposed")
	ErrNotInitialized  = errors.New("manager is not initialized")
)

// ParseError reports the slot and the input that could not be converted.
type ParseError struct {
	Slot  int
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("slot %d: %q: %v", e.Slot, e.Input, e.Err)
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(slot int, input string, err error) error {
	return &ParseError{Slot: slot, Input: input, Err: err}
}
