package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-tuner/pkg/tuner/measure"
	"github.com/askiada/go-tuner/pkg/tuner/model"
)

type tunerDrawer struct {
	Drawer
	m          measure.Measure
	generation string
}

func (td *tunerDrawer) New() error {
	return td.Reset("", "")
}

func (td *tunerDrawer) PrepareField(field *model.FieldInfo) error {
	if field.Generation != td.generation {
		td.generation = field.Generation
		err := td.Reset(field.Pipeline, field.Generation)
		if err != nil {
			return errors.Wrap(err, "unable to reset drawer")
		}
	}

	return td.AddField(field)
}

func (td *tunerDrawer) OnFieldRefresh(field *model.FieldInfo, refreshDuration time.Duration, changed bool) error {
	return nil
}

func (td *tunerDrawer) OnFieldWrite(field *model.FieldInfo, writeErr error) error {
	return nil
}

func (td *tunerDrawer) OnReset(pipeline, generation string, fields []*model.FieldInfo) error {
	if generation != td.generation {
		td.generation = generation
		err := td.Reset(pipeline, generation)
		if err != nil {
			return errors.Wrap(err, "unable to reset drawer")
		}
	}

	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		known[field.Name] = struct{}{}
	}
	for _, field := range fields {
		for _, dep := range field.DependsOn {
			if _, ok := known[dep]; !ok || dep == field.Name {
				continue
			}
			err := td.AddDependency(dep, field.Name)
			if err != nil {
				return err
			}
		}
	}

	err := td.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw field graph")
	}

	return nil
}

func (td *tunerDrawer) OnTick(tickDuration time.Duration) error {
	return nil
}

func (td *tunerDrawer) Finish() error {
	if td.m != nil {
		err := td.AddMeasure(td.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := td.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw field graph")
	}

	return nil
}

// TunerDrawer redraws the field graph after every reset and, with a measure,
// colours it by refresh cost when the manager is disposed.
func TunerDrawer(drawer Drawer, measure measure.Measure) model.TunerOption {
	return &tunerDrawer{Drawer: drawer, m: measure}
}
