package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	submittedCounter       prometheus.Counter
	deliveredCounter       prometheus.Counter
	droppedCounter         *prometheus.CounterVec
	deadLetteredCounter    *prometheus.CounterVec
	deadLetterFailureCount prometheus.Counter
	retryCounter           prometheus.Counter
	connectFailureCounter  prometheus.Counter
	batchSizeHistogram     prometheus.Histogram
	batchDuration          prometheus.Histogram
	queueDepthGauge        prometheus.Gauge
	connectionStateGauge   prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.submittedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_submitted_count",
		Help: "The number of events accepted into the delivery queue",
	})

	metrics.deliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_delivered_count",
		Help: "The number of events acknowledged by the broker",
	})

	metrics.droppedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_dropped_count",
		Help: "The number of events dropped before being queued",
	}, []string{"reason"})

	metrics.deadLetteredCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_dead_lettered_count",
		Help: "The number of events moved to the dead-letter log",
	}, []string{"reason"})

	metrics.deadLetterFailureCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_dead_letter_failure_count",
		Help: "The number of dead-letter records that could not be written to the sink",
	})

	metrics.retryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_retry_count",
		Help: "The number of batch delivery retries",
	})

	metrics.connectFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_connect_failure_count",
		Help: "The number of failed broker handshakes",
	})

	metrics.batchSizeHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "identity_event_forwarder_batch_size",
		Help:    "The number of events per delivered batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 11),
	})

	metrics.batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "identity_event_forwarder_batch_delivery_duration",
		Help: "The amount of time delivering a batch took, including retries",
	})

	metrics.queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "identity_event_forwarder_queue_depth",
		Help: "The number of events waiting in the delivery queue",
	})

	metrics.connectionStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "identity_event_forwarder_connection_state",
		Help: "The broker connection state (0=disconnected 1=connecting 2=ready 3=draining 4=failed 5=closed)",
	})

	return metrics
}

var (
	metrics = NewMetrics()
)
