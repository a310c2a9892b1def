package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/utils/tls_utils"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// Identity events are published at least once.
const publishQos = 1

type brokerDialer func(brokerUrl string, connectTimeout time.Duration, brokerConfigFuncs ...MqttClientOptionsFunc) (MQTT.Client, error)

type Connector struct {
	brokerUrl      string
	topic          string
	connectTimeout time.Duration
	publishTimeout time.Duration
	quiesce        uint
	optionFuncs    []MqttClientOptionsFunc

	dial brokerDialer
}

func NewConnector(cfg *config.Config) (*Connector, error) {
	optionFuncs := []MqttClientOptionsFunc{
		WithClientID(cfg.MqttClientID),
		WithCleanSession(true),
		WithoutAutoReconnect(),
		WithConnectTimeout(cfg.MqttConnectTimeout),
	}

	if cfg.MqttUsername != "" {
		optionFuncs = append(optionFuncs, WithCredentials(cfg.MqttUsername, cfg.MqttPassword))
	}

	if usesTls(cfg) {
		var tlsFuncs []tls_utils.TlsConfigFunc

		if cfg.MqttBrokerTlsCACertFile != "" {
			tlsFuncs = append(tlsFuncs, tls_utils.WithCACerts(cfg.MqttBrokerTlsCACertFile))
		}

		if cfg.MqttBrokerTlsClientCertFile != "" {
			tlsFuncs = append(tlsFuncs, tls_utils.WithCert(cfg.MqttBrokerTlsClientCertFile, cfg.MqttBrokerTlsClientKeyFile))
		}

		if cfg.MqttBrokerTlsSkipVerify {
			tlsFuncs = append(tlsFuncs, tls_utils.WithSkipVerify())
		}

		tlsConfig, err := tls_utils.NewTlsConfig(tlsFuncs...)
		if err != nil {
			return nil, err
		}

		optionFuncs = append(optionFuncs, WithTlsConfig(tlsConfig))
	}

	return &Connector{
		brokerUrl:      cfg.MqttBrokerAddress,
		topic:          cfg.MqttTopic,
		connectTimeout: cfg.MqttConnectTimeout,
		publishTimeout: cfg.MqttPublishTimeout,
		quiesce:        cfg.MqttDisconnectQuiesceTime,
		optionFuncs:    optionFuncs,
		dial:           CreateBrokerConnection,
	}, nil
}

func usesTls(cfg *config.Config) bool {
	scheme := strings.ToLower(cfg.MqttBrokerAddress)
	return strings.HasPrefix(scheme, "ssl://") ||
		strings.HasPrefix(scheme, "tls://") ||
		strings.HasPrefix(scheme, "mqtts://") ||
		cfg.MqttBrokerTlsCACertFile != "" ||
		cfg.MqttBrokerTlsClientCertFile != ""
}

func (c *Connector) Connect(ctx context.Context) (delivery.Publisher, error) {
	lost := make(chan *ConnectError, 1)

	optionFuncs := make([]MqttClientOptionsFunc, 0, len(c.optionFuncs)+1)
	optionFuncs = append(optionFuncs, c.optionFuncs...)
	optionFuncs = append(optionFuncs, WithConnectionLostHandler(func(ce *ConnectError) {
		metrics.connectionLostCounter.WithLabelValues(ce.Category).Inc()
		select {
		case lost <- ce:
		default:
		}
	}))

	timeout := c.connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	client, err := c.dial(c.brokerUrl, timeout, optionFuncs...)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		client:         client,
		topic:          c.topic,
		publishTimeout: c.publishTimeout,
		quiesce:        c.quiesce,
		lost:           lost,
	}, nil
}

// Publisher sends one QoS 1 PUBLISH per event and waits for each PUBACK before
// the next, keeping broker order equal to batch order.
type Publisher struct {
	client         MQTT.Client
	topic          string
	publishTimeout time.Duration
	quiesce        uint

	lost    chan *ConnectError
	lostErr *ConnectError
}

func (p *Publisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	for _, msg := range msgs {
		if err := p.connectionLost(); err != nil {
			return err
		}

		token := p.client.Publish(p.topic, publishQos, false, msg.Value)
		if err := p.wait(ctx, token); err != nil {
			return err
		}

		metrics.publishedMessageCounter.Inc()
	}

	return nil
}

func (p *Publisher) wait(ctx context.Context, token MQTT.Token) error {
	timer := time.NewTimer(p.publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		metrics.publishFailureCounter.WithLabelValues("cancelled").Inc()
		return ctx.Err()
	case <-timer.C:
		metrics.publishFailureCounter.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: no PUBACK within %s", delivery.ErrConnectionLost, p.publishTimeout)
	}

	if err := token.Error(); err != nil {
		if lostErr := p.connectionLost(); lostErr != nil {
			metrics.publishFailureCounter.WithLabelValues("connection_lost").Inc()
			return lostErr
		}
		metrics.publishFailureCounter.WithLabelValues("error").Inc()
		return err
	}

	return nil
}

func (p *Publisher) connectionLost() error {
	if p.lostErr == nil {
		select {
		case ce := <-p.lost:
			p.lostErr = ce
		default:
		}
	}

	if p.lostErr != nil {
		return fmt.Errorf("%w: %v", delivery.ErrConnectionLost, p.lostErr)
	}

	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("%w: %v", delivery.ErrConnectionLost, ErrConnectionLost)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.client.Disconnect(p.quiesce)
	return nil
}
