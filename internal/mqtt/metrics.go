package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	publishedMessageCounter prometheus.Counter
	publishFailureCounter   *prometheus.CounterVec
	connectionLostCounter   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := new(Metrics)

	metrics.publishedMessageCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_event_forwarder_mqtt_published_message_count",
		Help: "The number of identity events acknowledged by the MQTT broker",
	})

	metrics.publishFailureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_mqtt_publish_failure_count",
		Help: "The number of failed MQTT publishes by cause",
	}, []string{"cause"})

	metrics.connectionLostCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_event_forwarder_mqtt_connection_lost_count",
		Help: "The number of lost MQTT broker connections by category",
	}, []string{"category"})

	return metrics
}

var (
	metrics = NewMetrics()
)
