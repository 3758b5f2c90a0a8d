package measure

import (
	"time"

	"github.com/askiada/go-tuner/pkg/tuner/model"
)

// Measure collects per-field metrics of a tuner manager.
type Measure interface {
	// AddMetric registers the metric of a bound field and returns it.
	AddMetric(field *model.FieldInfo) Metric
	// GetMetric returns the metric of a field, nil when unknown.
	GetMetric(name string) Metric
	// AllMetrics returns the metrics of the fields bound by the last reset.
	AllMetrics() map[string]Metric
	// ObserveReset records a new field generation.
	ObserveReset(generation string, fields int)
	// ObserveTick records the duration of one update sweep.
	ObserveTick(elapsed time.Duration)
}

// Metric holds the statistics of one field.
type Metric interface {
	AddRefreshDuration(elapsed time.Duration, changed bool)
	AddWrite(err error)
	AVGRefreshDuration() time.Duration
	Refreshes() int64
	Changes() int64
	Writes() int64
	RejectedWrites() int64
}
