package listener

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the listener's counters. They are registered on the given
// registerer so the status server can expose them.
type Metrics struct {
	Frames        prometheus.Counter
	ReceiveErrors prometheus.Counter
	Unrecognized  prometheus.Counter
	Filtered      *prometheus.CounterVec
	Accepted      *prometheus.CounterVec
	ClockResyncs  prometheus.Counter
}

// NewMetrics creates the counters. A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "frames_total",
			Help:      "Frames received from the subscription transport.",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "receive_errors_total",
			Help:      "Transport receive failures.",
		}),
		Unrecognized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "unrecognized_frames_total",
			Help:      "Frames dropped because they could not be classified.",
		}),
		Filtered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "filtered_events_total",
			Help:      "Events dropped by the visibility filter.",
		}, []string{"reason"}),
		Accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "accepted_events_total",
			Help:      "Events appended to the event store.",
		}, []string{"kind"}),
		ClockResyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedclient",
			Subsystem: "listener",
			Name:      "clock_resyncs_total",
			Help:      "Logical clock overwrites triggered by inbound events.",
		}),
	}
}
