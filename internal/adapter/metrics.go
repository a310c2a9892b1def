package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	receivedCounter      *prometheus.CounterVec
	filteredCounter      *prometheus.CounterVec
	failureCounter       *prometheus.CounterVec
	userCacheHitCounter  prometheus.Counter
	userCacheMissCounter prometheus.Counter
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.receivedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_host_event_received_count",
		Help: "The number of events handed to the listener by the identity server",
	}, []string{"kind"})

	metrics.filteredCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_host_event_filtered_count",
		Help: "The number of events not forwarded because of their type",
	}, []string{"kind"})

	metrics.failureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_host_event_failure_count",
		Help: "The number of events the listener could not forward",
	}, []string{"reason"})

	metrics.userCacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_user_cache_hit_count",
		Help: "The number of user lookups answered from the cache",
	})

	metrics.userCacheMissCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_user_cache_miss_count",
		Help: "The number of user lookups sent to the user directory",
	})

	return metrics
}

var (
	metrics = NewMetrics()
)
