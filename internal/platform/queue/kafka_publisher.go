package queue

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"

	kafka "github.com/segmentio/kafka-go"
)

const (
	EventTypeHeader = "event_type"
	EventIDHeader   = "event_id"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConnector verifies a broker is reachable and the topic exists before
// handing out a writer.
type KafkaConnector struct {
	cfg    *ProducerConfig
	dialer *kafka.Dialer
}

func NewKafkaConnector(cfg *ProducerConfig) (*KafkaConnector, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	dialer, err := newDialer(cfg.SaslConfig)
	if err != nil {
		return nil, err
	}

	return &KafkaConnector{cfg: cfg, dialer: dialer}, nil
}

func (c *KafkaConnector) Connect(ctx context.Context) (delivery.Publisher, error) {
	broker := c.cfg.Brokers[rand.Intn(len(c.cfg.Brokers))]

	partitions, err := c.dialer.LookupPartitions(ctx, "tcp", broker, c.cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka handshake with %s failed: %w", broker, err)
	}

	if len(partitions) == 0 {
		return nil, fmt.Errorf("kafka topic %s has no partitions", c.cfg.Topic)
	}

	writer, err := StartProducer(c.cfg)
	if err != nil {
		return nil, err
	}

	return &KafkaPublisher{writer: writer}, nil
}

type KafkaPublisher struct {
	writer messageWriter
}

func (p *KafkaPublisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	return classifyKafkaError(p.writer.WriteMessages(ctx, toKafkaMessages(msgs)...))
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toKafkaMessages(msgs []delivery.Message) []kafka.Message {
	kafkaMsgs := make([]kafka.Message, len(msgs))

	for i, msg := range msgs {
		kafkaMsgs[i] = kafka.Message{
			Key:   msg.Key,
			Value: msg.Value,
			Headers: []kafka.Header{
				{Key: EventTypeHeader, Value: []byte(msg.EventType)},
				{Key: EventIDHeader, Value: []byte(msg.EventID)},
			},
		}
	}

	return kafkaMsgs
}

// classifyKafkaError marks broker error codes that will not succeed on retry,
// such as an oversized message or a topic authorization failure.
func classifyKafkaError(err error) error {
	if err == nil {
		return nil
	}

	var writeErrors kafka.WriteErrors
	if errors.As(err, &writeErrors) {
		for _, writeErr := range writeErrors {
			if isFatalKafkaError(writeErr) {
				return delivery.Unrecoverable(err)
			}
		}
		return err
	}

	if isFatalKafkaError(err) {
		return delivery.Unrecoverable(err)
	}

	return err
}

func isFatalKafkaError(err error) bool {
	var kafkaErr kafka.Error
	if !errors.As(err, &kafkaErr) {
		return false
	}
	return !kafkaErr.Temporary()
}
