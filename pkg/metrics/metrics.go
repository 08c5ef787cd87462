package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the booking service.
type Metrics struct {
	BookingsAdmitted  prometheus.Counter
	BookingsRejected  prometheus.Counter
	BookingsDisplaced prometheus.Counter
	GenerationRuns    prometheus.Counter
	BookingsGenerated prometheus.Counter
	GenerationGaps    prometheus.Counter
	LateFeesAssessed  prometheus.Counter
	AdmissionTime     prometheus.Histogram
	ErrorsCount       *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		BookingsAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_admitted_total",
			Help:      "The total number of admitted bookings",
		}),
		BookingsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_rejected_total",
			Help:      "The total number of bookings rejected on conflict",
		}),
		BookingsDisplaced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_displaced_total",
			Help:      "The total number of bookings cancelled by emergency displacement",
		}),
		GenerationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "The total number of recurrence generation runs",
		}),
		BookingsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_generated_total",
			Help:      "The total number of bookings materialized from recurring rules",
		}),
		GenerationGaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_gaps_total",
			Help:      "The total number of recurrence occurrences skipped on conflict",
		}),
		LateFeesAssessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_fees_assessed_total",
			Help:      "The total number of late return fees assessed",
		}),
		AdmissionTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_time_seconds",
			Help:      "Time taken to decide a booking admission",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
