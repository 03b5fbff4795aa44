package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error kinds used as the "kind" label on ErrorsTotal.
const (
	ErrorKindDecode   = "decode"
	ErrorKindConfig   = "config"
	ErrorKindPublish  = "publish"
	ErrorKindCanceled = "canceled"
	ErrorKindOther    = "other"
)

// Metrics holds all cloudwatch-stdf Prometheus metrics.
type Metrics struct {
	InvocationsTotal   *prometheus.CounterVec
	RecordsDecoded     prometheus.Counter
	EnvelopesPublished prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	PhaseDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers all cloudwatch-stdf metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		InvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stdf_invocations_total",
			Help: "Subscription batches handled, by outcome.",
		}, []string{"status"}),

		RecordsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "stdf_records_decoded_total",
			Help: "Log records decoded from subscription batches.",
		}),

		EnvelopesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "stdf_envelopes_published_total",
			Help: "STDF envelopes accepted by the transport.",
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stdf_errors_total",
			Help: "Failed invocations by error kind.",
		}, []string{"kind"}),

		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stdf_phase_duration_seconds",
			Help:    "Processing time per invocation phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
	}
}
