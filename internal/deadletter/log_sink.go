package deadletter

import (
	"context"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

// LogSink is the least durable sink: it relies on the log pipeline to keep the
// record.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, dl delivery.DeadLetter) error {
	logger.Log.WithFields(logrus.Fields{
		"dead_letter_type": dl.Type,
		"event_id":         dl.EventID,
		"event_type":       dl.EventType,
		"reason":           dl.Reason,
		"attempts":         dl.Attempts,
		"last_error":       dl.LastError,
		"key":              dl.Key,
		"payload":          dl.Payload,
	}).Error("Identity event dead-lettered")
	return nil
}

func (LogSink) Close() error {
	return nil
}
