package queue

import (
	"context"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

// LogConnector hands out a publisher that writes events to the log instead of a
// broker.  Used for local development.
type LogConnector struct{}

func (LogConnector) Connect(ctx context.Context) (delivery.Publisher, error) {
	return LogPublisher{}, nil
}

type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	for _, msg := range msgs {
		logger.Log.WithFields(logrus.Fields{
			"event_id":   msg.EventID,
			"event_type": msg.EventType,
			"key":        string(msg.Key),
			"payload":    string(msg.Value),
		}).Info("Publishing identity event")
	}
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
