package mqtt

import (
	"crypto/tls"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

type MqttClientOptionsFunc func(*MQTT.ClientOptions) error

func WithTlsConfig(tlsConfig *tls.Config) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		logger.Log.Debug("Setting the MQTT TLS config")
		opts.SetTLSConfig(tlsConfig)
		return nil
	}
}

func WithClientID(clientID string) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		logger.Log.Debug("Setting the MQTT client id: ", clientID)
		opts.SetClientID(clientID)
		return nil
	}
}

func WithCredentials(username string, password string) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetUsername(username)
		opts.SetPassword(password)
		return nil
	}
}

func WithCleanSession(cleanSession bool) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetCleanSession(cleanSession)
		return nil
	}
}

// WithoutAutoReconnect leaves reconnecting to the delivery worker so that the
// connection state it reports matches the real connection.
func WithoutAutoReconnect() MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetAutoReconnect(false)
		opts.SetConnectRetry(false)
		return nil
	}
}

func WithConnectTimeout(timeout time.Duration) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetConnectTimeout(timeout)
		return nil
	}
}

func WithConnectionLostHandler(onLost func(*ConnectError)) MqttClientOptionsFunc {
	return func(opts *MQTT.ClientOptions) error {
		opts.SetConnectionLostHandler(func(client MQTT.Client, err error) {
			classified := classifyConnectionLostError(err)
			logger.Log.WithFields(logrus.Fields{"error": classified, "category": classified.Category}).Warn("MQTT connection lost")
			onLost(classified)
		})
		return nil
	}
}

func NewBrokerOptions(brokerUrl string, opts ...MqttClientOptionsFunc) (*MQTT.ClientOptions, error) {
	connOpts := MQTT.NewClientOptions()

	connOpts.AddBroker(brokerUrl)

	for _, opt := range opts {
		err := opt(connOpts)
		if err != nil {
			return nil, err
		}
	}

	return connOpts, nil
}
