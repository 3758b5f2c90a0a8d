// Package tuner exposes the parameters of a live image-processing pipeline for editing while it runs.
//
// A pipeline is a pointer to a struct. Its exported fields are discovered one level deep and each one is
// resolved to a Kind, first through the type Registry and then through the ordered AcceptorChain. A Kind
// builds a Handler which renders the field as a fixed arrangement of scalar slots (text inputs) and selection
// slots (closed domains). Fields whose type resolves to nothing are skipped.
//
// The `tune` struct tag refines a field:
//
//	type Threshold struct {
//		Level uint8   `tune:"label=Threshold level,min=0,max=255"`
//		Low   float64 `tune:"max=High"`
//		High  float64
//		Mode  string  `tune:"choices=binary|otsu|adaptive"`
//		Debug bool    `tune:"-"`
//	}
//
// A bound naming a sibling field follows that field's live value.
//
// The Manager owns the Field set of the active pipeline instance. All writes, update sweeps and resets run on
// a single task queue, so they never interleave. When the Source swaps the pipeline the current fields are
// invalidated synchronously and a reset is queued, so no write can ever reach a superseded instance.
// Presentation layers read immutable panel snapshots and write back through the callbacks they carry.
package tuner
