// Package metrics holds the Prometheus collectors of the server. They are
// registered on their own registry and served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ifcserver"

var (
	Registry = prometheus.NewRegistry()

	// ExtractionRuns counts finished extraction runs by status (done, failed)
	ExtractionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_runs_total",
		Help:      "Finished extraction runs",
	}, []string{"status"})
	ExtractedElements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extracted_elements_total",
		Help:      "Elements whose properties were stored",
	})
	FailedElements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failed_elements_total",
		Help:      "Elements skipped because their statement could not be parsed",
	})
	ExtractionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Duration of extraction runs",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "extraction_queue_depth",
		Help:      "Extraction runs waiting for a worker",
	})

	// PropertyLookups counts property store reads by result (found, missing, error)
	PropertyLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "property_lookups_total",
		Help:      "Property record lookups",
	}, []string{"result"})
	// Resolutions counts fragment picks by confidence (none, exact, approximate)
	Resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "correlation_resolutions_total",
		Help:      "Fragment to element resolutions",
	}, []string{"confidence"})
	OpenViews = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_views",
		Help:      "Viewer sessions with a loaded correlation index",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ExtractionRuns,
		ExtractedElements,
		FailedElements,
		ExtractionDuration,
		QueueDepth,
		PropertyLookups,
		Resolutions,
		OpenViews,
	)
}

// Handler serves the registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
