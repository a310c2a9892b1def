package lifecycle

import (
	"errors"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/mqtt"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/queue"
)

type ConnectorFactory func(impl string, cfg *config.Config) (delivery.Connector, error)

type DeadLetterSinkFactory func(impl string, cfg *config.Config) (delivery.DeadLetterSink, error)

func NewConnector(impl string, cfg *config.Config) (delivery.Connector, error) {
	logger.Log.Info("Broker connector: ", impl)

	switch impl {
	case "kafka":
		return queue.NewKafkaConnector(queue.ProducerConfigFromConfig(cfg, cfg.KafkaTopic))
	case "nsq":
		return queue.NewNsqConnector(cfg.NsqdTCPAddr, cfg.NsqTopic), nil
	case "sqs":
		return queue.NewSqsConnector(cfg.SqsQueueURL, cfg.AwsRegion), nil
	case "mqtt":
		return mqtt.NewConnector(cfg)
	case "log":
		return queue.LogConnector{}, nil
	}

	return nil, errors.New("Invalid broker connector impl requested")
}
