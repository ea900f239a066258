// Package metrics instruments the compile and viewport query paths with
// Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vibe_sync"

// Collector groups the Prometheus collectors. A nil *Collector is valid and
// records nothing, so library code can call it unconditionally.
type Collector struct {
	compileDuration     prometheus.Histogram
	chromosomesCompiled prometheus.Counter
	blanksInserted      prometheus.Counter
	insertionEvents     prometheus.Counter
	variantsSkipped     prometheus.Counter
	viewportQueries     *prometheus.CounterVec
	fitRebuilds         prometheus.Counter
}

// New creates a Collector and registers it on reg. A nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling one chromosome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		chromosomesCompiled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chromosomes_compiled_total",
			Help:      "Chromosomes compiled.",
		}),
		blanksInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blanks_inserted_total",
			Help:      "Blank placeholders inserted by the compiler.",
		}),
		insertionEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insertion_events_total",
			Help:      "Reference positions at which at least one genome inserts.",
		}),
		variantsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_skipped_total",
			Help:      "Variants dropped because they overlap an earlier event of the same genome.",
		}),
		viewportQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewport_queries_total",
			Help:      "Viewport queries by result.",
		}, []string{"result"}),
		fitRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_rebuilds_total",
			Help:      "Rebuilds of the fitted interval list.",
		}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{
			c.compileDuration, c.chromosomesCompiled, c.blanksInserted,
			c.insertionEvents, c.variantsSkipped, c.viewportQueries, c.fitRebuilds,
		} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// ObserveCompile records one compiled chromosome.
func (c *Collector) ObserveCompile(d time.Duration, insertions, blanks, skipped int) {
	if c == nil {
		return
	}
	c.compileDuration.Observe(d.Seconds())
	c.chromosomesCompiled.Inc()
	c.insertionEvents.Add(float64(insertions))
	c.blanksInserted.Add(float64(blanks))
	c.variantsSkipped.Add(float64(skipped))
}

// ObserveQuery records one viewport query. hit reports whether any interval
// was returned.
func (c *Collector) ObserveQuery(hit bool) {
	if c == nil {
		return
	}
	result := "empty"
	if hit {
		result = "hit"
	}
	c.viewportQueries.WithLabelValues(result).Inc()
}

// FitRebuilt records a rebuild of a fitted interval list.
func (c *Collector) FitRebuilt() {
	if c == nil {
		return
	}
	c.fitRebuilds.Inc()
}
