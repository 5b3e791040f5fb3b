package messages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for queue operations.
type Metrics struct {
	Added   prometheus.Counter
	Leased  prometheus.Counter
	Deleted prometheus.Counter
	Retried prometheus.Counter
	Purges  prometheus.Counter

	Ready    prometheus.Gauge
	InFlight prometheus.Gauge
}

// NewMetrics registers the queue collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Added: factory.NewCounter(prometheus.CounterOpts{
			Name: "smq_messages_added_total",
			Help: "Messages accepted into the ready queue.",
		}),
		Leased: factory.NewCounter(prometheus.CounterOpts{
			Name: "smq_messages_leased_total",
			Help: "Messages handed to consumers.",
		}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "smq_messages_deleted_total",
			Help: "Message ids acknowledged via delete. Includes ids that were no longer in-flight.",
		}),
		Retried: factory.NewCounter(prometheus.CounterOpts{
			Name: "smq_messages_retried_total",
			Help: "Message ids released back to the ready queue. Includes ids that were no longer in-flight.",
		}),
		Purges: factory.NewCounter(prometheus.CounterOpts{
			Name: "smq_purges_total",
			Help: "Purge operations performed.",
		}),
		Ready: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smq_ready_messages",
			Help: "Messages in the ready queue at last stats read.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smq_inflight_messages",
			Help: "Messages leased but not yet acknowledged at last stats read.",
		}),
	}
}
