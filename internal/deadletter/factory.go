package deadletter

import (
	"errors"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/db"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/queue"
)

func NewDeadLetterSink(impl string, cfg *config.Config) (delivery.DeadLetterSink, error) {
	logger.Log.Info("Dead-letter sink: ", impl)

	switch impl {
	case "file":
		return NewFileSink(cfg.DeadLetterFile)

	case "kafka":
		producerConfig := queue.ProducerConfigFromConfig(cfg, cfg.DeadLetterTopic)
		producerConfig.BatchSize = 1

		writer, err := queue.StartProducer(producerConfig)
		if err != nil {
			return nil, err
		}
		return NewKafkaSink(writer), nil

	case "postgres":
		database, err := db.InitializeDatabaseConnection(cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresSink(database), nil

	case "log":
		return LogSink{}, nil
	}

	return nil, errors.New("Invalid dead-letter sink impl requested")
}
