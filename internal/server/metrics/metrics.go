// Package metrics exposes Prometheus counters for catalog actions and
// reconciliation passes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the catalog metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	imagesSwept    prometheus.Counter
	orphansFixed   *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	actions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "actions_total",
			Help:      "Total number of dispatched actions",
		},
		[]string{"action", "outcome"},
	)

	actionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "action_duration_seconds",
			Help:      "Action duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	imagesSwept := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "images_swept_total",
			Help:      "Total number of unattached images deleted",
		},
	)

	orphansFixed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "orphans_fixed_total",
			Help:      "Total number of orphaned entry references repaired",
		},
		[]string{"dimension"},
	)

	registry.MustRegister(actions, actionDuration, imagesSwept, orphansFixed)

	return &Collector{
		registry:       registry,
		actions:        actions,
		actionDuration: actionDuration,
		imagesSwept:    imagesSwept,
		orphansFixed:   orphansFixed,
	}
}

// ObserveAction records one dispatched action. outcome is "ok" or a failure kind.
func (c *Collector) ObserveAction(action, outcome string, elapsed time.Duration) {
	c.actions.WithLabelValues(action, outcome).Inc()
	c.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (c *Collector) ImagesSwept(n int) {
	c.imagesSwept.Add(float64(n))
}

func (c *Collector) OrphansFixed(category, image int64) {
	c.orphansFixed.WithLabelValues("category").Add(float64(category))
	c.orphansFixed.WithLabelValues("image").Add(float64(image))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
