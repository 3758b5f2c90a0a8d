package measure

import (
	"sync"
	"time"
)

type DefaultMetric struct {
	mu             *sync.Mutex
	refreshElapsed time.Duration
	refreshes      int64
	changes        int64
	writes         int64
	rejected       int64
}

func newDefaultMetric() *DefaultMetric {
	return &DefaultMetric{mu: &sync.Mutex{}}
}

func (mt *DefaultMetric) AddRefreshDuration(elapsed time.Duration, changed bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.refreshes++
	mt.refreshElapsed += elapsed
	if changed {
		mt.changes++
	}
}

func (mt *DefaultMetric) AddWrite(err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.writes++
	if err != nil {
		mt.rejected++
	}
}

func (mt *DefaultMetric) AVGRefreshDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.refreshes == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.refreshElapsed) / float64(mt.refreshes)))
}

func (mt *DefaultMetric) Refreshes() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.refreshes
}

func (mt *DefaultMetric) Changes() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.changes
}

func (mt *DefaultMetric) Writes() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.writes
}

func (mt *DefaultMetric) RejectedWrites() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.rejected
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Hour)
	case d > time.Minute:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}

var _ Metric = (*DefaultMetric)(nil)
