package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NotehubRequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notehub_request_count",
			Help: "Number of requests sent to Notehub.",
		},
		[]string{"method", "status"},
	)

	NotehubRequestTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notehub_request_time_seconds",
			Help: "Response time in seconds of Notehub requests.",
		},
		[]string{"method"},
	)

	// routed events by transport and outcome
	IngestedEventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingested_event_count",
			Help: "Number of routed events received.",
		},
		[]string{"transport", "outcome"},
	)

	StoredReadingCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stored_reading_count",
			Help: "Number of sensor readings handed to the event handler.",
		},
		[]string{"sensor_type"},
	)

	PersistedDegradedCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persisted_degraded_count",
			Help: "Number of reads served without the persisted store after it failed.",
		},
		[]string{"operation"},
	)

	LiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connection_count",
			Help: "Number of live websocket connections.",
		},
	)

	RESTAPITime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rest_api_time_seconds",
			Help: "Response time in seconds of REST API calls.",
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(NotehubRequestCount)
	prometheus.MustRegister(NotehubRequestTime)
	prometheus.MustRegister(IngestedEventCount)
	prometheus.MustRegister(StoredReadingCount)
	prometheus.MustRegister(PersistedDegradedCount)
	prometheus.MustRegister(LiveConnections)
	prometheus.MustRegister(RESTAPITime)
}
