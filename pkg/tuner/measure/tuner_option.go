package measure

import (
	"time"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

type tunerMeasure struct {
	Measure
}

func (tm *tunerMeasure) New() error {
	return nil
}

func (tm *tunerMeasure) PrepareField(field *model.FieldInfo) error {
	tm.AddMetric(field)

	return nil
}

func (tm *tunerMeasure) OnFieldRefresh(field *model.FieldInfo, refreshDuration time.Duration, changed bool) error {
	if mt := tm.GetMetric(field.Name); mt != nil {
		mt.AddRefreshDuration(refreshDuration, changed)
	}

	return nil
}

func (tm *tunerMeasure) OnFieldWrite(field *model.FieldInfo, writeErr error) error {
	if mt := tm.GetMetric(field.Name); mt != nil {
		mt.AddWrite(writeErr)
	}

	return nil
}

func (tm *tunerMeasure) OnReset(_, generation string, fields []*model.FieldInfo) error {
	tm.ObserveReset(generation, len(fields))

	return nil
}

func (tm *tunerMeasure) OnTick(tickDuration time.Duration) error {
	tm.ObserveTick(tickDuration)

	return nil
}

func (tm *tunerMeasure) Finish() error {
	return nil
}

// TunerMeasure feeds a Measure from the manager lifecycle.
func TunerMeasure(measure Measure) model.TunerOption {
	return &tunerMeasure{measure}
}
