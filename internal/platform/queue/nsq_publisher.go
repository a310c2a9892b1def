package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	"github.com/nsqio/go-nsq"
)

type nsqProducer interface {
	Ping() error
	MultiPublish(topic string, body [][]byte) error
	Stop()
}

type NsqConnector struct {
	addr  string
	topic string

	newProducer func(addr string) (nsqProducer, error)
}

func NewNsqConnector(addr string, topic string) *NsqConnector {
	return &NsqConnector{addr: addr, topic: topic, newProducer: newNsqProducer}
}

func newNsqProducer(addr string) (nsqProducer, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	producer.SetLogger(nsqLogAdapter{}, nsq.LogLevelWarning)
	return producer, nil
}

func (c *NsqConnector) Connect(ctx context.Context) (delivery.Publisher, error) {
	producer, err := c.newProducer(c.addr)
	if err != nil {
		return nil, fmt.Errorf("nsq producer for %s: %w", c.addr, err)
	}

	pinged := make(chan error, 1)
	go func() {
		pinged <- producer.Ping()
	}()

	select {
	case err = <-pinged:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		producer.Stop()
		return nil, fmt.Errorf("nsq handshake with %s failed: %w", c.addr, err)
	}

	return &NsqPublisher{producer: producer, topic: c.topic}, nil
}

// NsqPublisher sends each batch as one MPUB.  NSQ has no message key so per-user
// ordering relies on the single worker.
type NsqPublisher struct {
	producer nsqProducer
	topic    string
}

func (p *NsqPublisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bodies := make([][]byte, len(msgs))
	for i, msg := range msgs {
		bodies[i] = msg.Value
	}

	// go-nsq has no cancellable publish; abandon the wait so shutdown stays bounded
	published := make(chan error, 1)
	go func() {
		published <- p.producer.MultiPublish(p.topic, bodies)
	}()

	select {
	case err := <-published:
		return classifyNsqError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *NsqPublisher) Close() error {
	p.producer.Stop()
	return nil
}

func classifyNsqError(err error) error {
	if err == nil {
		return nil
	}

	var protocolErr nsq.ErrProtocol
	if errors.As(err, &protocolErr) {
		return delivery.Unrecoverable(err)
	}

	if errors.Is(err, nsq.ErrStopped) || errors.Is(err, nsq.ErrNotConnected) || errors.Is(err, nsq.ErrClosing) {
		return fmt.Errorf("%w: %v", delivery.ErrConnectionLost, err)
	}

	return err
}

type nsqLogAdapter struct{}

func (nsqLogAdapter) Output(calldepth int, s string) error {
	logger.Log.Warn("nsq: ", strings.TrimSpace(s))
	return nil
}
