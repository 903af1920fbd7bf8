package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "directory_service",
		Subsystem: "queries",
		Name:      "total",
		Help:      "Number of directory queries served, by operation.",
	}, []string{"operation"})
	coordinateParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "directory_service",
		Subsystem: "store",
		Name:      "coordinate_parse_failures_total",
		Help:      "Rows excluded from geographic evaluation because their stored coordinates did not parse.",
	})
)

func init() {
	prometheus.MustRegister(queriesTotal, coordinateParseFailures)
}

// RecordQuery counts one served query for the named operation.
func RecordQuery(operation string) {
	queriesTotal.WithLabelValues(operation).Inc()
}

// RecordCoordinateParseFailure counts one row excluded for bad coordinates.
func RecordCoordinateParseFailure() {
	coordinateParseFailures.Inc()
}
