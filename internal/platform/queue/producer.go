package queue

import (
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func StartProducer(cfg *ProducerConfig) (*kafka.Writer, error) {
	logger.Log.Info("Starting a new Kafka producer..")
	logger.Log.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.Topic, "batch_size": cfg.BatchSize}).Info("Kafka producer configuration")

	kafkaDialer, err := newDialer(cfg.SaslConfig)
	if err != nil {
		logger.LogError("Failed to create a new Kafka dialer", err)
		return nil, err
	}

	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Dialer:       kafkaDialer,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   cfg.BatchBytes,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: int(kafka.RequireAll),
		MaxAttempts:  1,
	}

	switch cfg.Balancer {
	case "hash":
		writerConfig.Balancer = &kafka.Hash{}
	case "least_bytes":
		writerConfig.Balancer = &kafka.LeastBytes{}
	}

	w := kafka.NewWriter(writerConfig)

	logger.Log.Info("Producing messages to topic: ", cfg.Topic)

	return w, nil
}

func StartConsumer(cfg *ConsumerConfig) (*kafka.Reader, error) {
	logger.Log.Info("Starting Kafka Message consumer...")
	logger.Log.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.Topic, "group_id": cfg.GroupID}).Info("Kafka consumer configuration")

	kafkaDialer, err := newDialer(cfg.SaslConfig)
	if err != nil {
		logger.LogError("Failed to create a new Kafka dialer", err)
		return nil, err
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		Dialer:   kafkaDialer,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return r, nil
}
