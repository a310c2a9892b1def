package deadletter

import (
	"context"
	"encoding/json"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"

	kafka "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes dead-letter records to a separate topic, keyed like the
// original event.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(writer messageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Record(ctx context.Context, dl delivery.DeadLetter) error {
	value, err := json.Marshal(dl)
	if err != nil {
		return err
	}

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(dl.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(dl.Reason)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
