package measure

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// PromMeasure keeps the in-memory statistics of DefaultMeasure and exports
// them as Prometheus metrics.
type PromMeasure struct {
	*DefaultMeasure

	refreshDuration *prometheus.HistogramVec
	refreshChanges  *prometheus.CounterVec
	writesTotal     *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	fieldsActive    prometheus.Gauge
	resetsTotal     prometheus.Counter
}

// NewPromMeasure creates the collectors and registers them on reg.
func NewPromMeasure(reg prometheus.Registerer) (*PromMeasure, error) {
	m := &PromMeasure{
		DefaultMeasure: NewDefaultMeasure(),
		refreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tuner_field_refresh_duration_seconds",
				Help:    "Time spent re-reading a field from the live pipeline",
				Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
			},
			[]string{"pipeline", "field"},
		),
		refreshChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tuner_field_changes_total",
				Help: "Number of refreshes that observed a new field value",
			},
			[]string{"pipeline", "field"},
		),
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tuner_field_writes_total",
				Help: "Number of field writes by outcome",
			},
			[]string{"pipeline", "field", "outcome"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tuner_update_duration_seconds",
				Help:    "Duration of one update sweep over every field",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		fieldsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tuner_fields_active",
				Help: "Number of fields bound to the active pipeline",
			},
		),
		resetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tuner_resets_total",
				Help: "Number of field set rebuilds",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.refreshDuration, m.refreshChanges, m.writesTotal,
		m.tickDuration, m.fieldsActive, m.resetsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "unable to register tuner metrics")
		}
	}

	return m, nil
}

func (m *PromMeasure) AddMetric(field *model.FieldInfo) Metric {
	return m.addMetric(field, &promMetric{
		Metric:   newDefaultMetric(),
		refresh:  m.refreshDuration.WithLabelValues(field.Pipeline, field.Name),
		changes:  m.refreshChanges.WithLabelValues(field.Pipeline, field.Name),
		accepted: m.writesTotal.WithLabelValues(field.Pipeline, field.Name, "accepted"),
		rejected: m.writesTotal.WithLabelValues(field.Pipeline, field.Name, "rejected"),
	})
}

func (m *PromMeasure) ObserveReset(generation string, fields int) {
	m.DefaultMeasure.ObserveReset(generation, fields)
	m.resetsTotal.Inc()
	m.fieldsActive.Set(float64(fields))
}

func (m *PromMeasure) ObserveTick(elapsed time.Duration) {
	m.DefaultMeasure.ObserveTick(elapsed)
	m.tickDuration.Observe(elapsed.Seconds())
}

type promMetric struct {
	Metric
	refresh  prometheus.Observer
	changes  prometheus.Counter
	accepted prometheus.Counter
	rejected prometheus.Counter
}

func (mt *promMetric) AddRefreshDuration(elapsed time.Duration, changed bool) {
	mt.Metric.AddRefreshDuration(elapsed, changed)
	mt.refresh.Observe(elapsed.Seconds())
	if changed {
		mt.changes.Inc()
	}
}

func (mt *promMetric) AddWrite(err error) {
	mt.Metric.AddWrite(err)
	if err != nil {
		mt.rejected.Inc()

		return
	}
	mt.accepted.Inc()
}

var _ Measure = (*PromMeasure)(nil)
