package model

import "time"

// TunerOption defines the interface for tuner manager options.
type TunerOption interface {
	// New initialises the tuner option.
	New() error

	fieldOption
	resetOption

	// Finish runs when the manager is disposed.
	Finish() error
}

// fieldOption defines the interface for field options at the manager level.
type fieldOption interface {
	// PrepareField runs once after a field is bound to a pipeline instance.
	PrepareField(field *FieldInfo) error
	// OnFieldRefresh runs everytime the field is refreshed by the update sweep.
	OnFieldRefresh(field *FieldInfo, refreshDuration time.Duration, changed bool) error
	// OnFieldWrite runs everytime a write is attempted on the field, err is the write outcome.
	OnFieldWrite(field *FieldInfo, writeErr error) error
}

// resetOption defines the interface for lifecycle options at the manager level.
type resetOption interface {
	// OnReset runs after the active field set has been rebuilt for a new pipeline generation.
	// pipeline is empty when no pipeline is loaded.
	OnReset(pipeline, generation string, fields []*FieldInfo) error
	// OnTick runs after each update sweep.
	OnTick(tickDuration time.Duration) error
}
