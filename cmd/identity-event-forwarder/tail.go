package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/queue"
	"github.com/RedHatInsights/identity-event-forwarder/internal/serializer"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func startTail(fromBeginning bool) {

	logger.InitLogger()
	defer logger.FlushLogger()

	logger.Log.Info("Starting identity-event-forwarder kafka tail")

	cfg := config.GetConfig()
	logger.Log.Info("identity-event-forwarder configuration:\n", cfg)

	consumerConfig := queue.ConsumerConfigFromConfig(cfg)
	if fromBeginning {
		// offsets are only honoured without a consumer group
		consumerConfig.GroupID = ""
	}

	reader, err := queue.StartConsumer(consumerConfig)
	if err != nil {
		logger.LogFatalError("Unable to start kafka consumer", err)
	}
	defer reader.Close()

	if fromBeginning {
		if err := reader.SetOffset(kafka.FirstOffset); err != nil {
			logger.LogFatalError("Unable to rewind kafka consumer", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for {
		msg, err := reader.ReadMessage(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			logger.LogError("Unable to read from kafka", err)
			break
		}

		log := logger.Log.WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"key":       string(msg.Key),
		})

		event, err := serializer.Decode(msg.Value)
		if err != nil {
			log.WithFields(logrus.Fields{"error": err, "payload": string(msg.Value)}).Warn("Unable to decode identity event")
			continue
		}

		log.WithFields(logrus.Fields{
			"event_id":   event.ID(),
			"event_type": event.Type(),
			"time":       event.Timestamp(),
			"subject":    event.Subject(),
			"realm":      event.Realm(),
			"outcome":    event.Outcome(),
			"details":    event.Details(),
		}).Info("Identity event")
	}

	logger.Log.Info("identity-event-forwarder tail shutting down")
}
