package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the audit log.
type Metrics struct {
	EventsLogged       *prometheus.CounterVec
	EventsDeduplicated prometheus.Counter
	InternalErrors     prometheus.Counter
	Detections         prometheus.Counter
	FlushBatches       prometheus.Counter
	FlushedEvents      prometheus.Counter
}

// NewMetrics creates and registers all audit metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsLogged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repoguard_audit_events_logged_total",
			Help: "Accepted audit events by severity",
		}, []string{"severity"}),
		EventsDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_audit_events_deduplicated_total",
			Help: "Events dropped as duplicates within the dedup window",
		}),
		InternalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_audit_internal_errors_total",
			Help: "Internal audit faults surfaced on the error signal",
		}),
		Detections: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_audit_detections_total",
			Help: "Synthetic events raised by pattern detection",
		}),
		FlushBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_audit_flush_batches_total",
			Help: "Flush batches delivered to the durable sink",
		}),
		FlushedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "repoguard_audit_flushed_events_total",
			Help: "Events delivered to the durable sink",
		}),
	}
}
