package queue

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	kafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

const dialTimeout = 10 * time.Second

// newDialer returns a plain dialer when no SASL settings are given.
func newDialer(cfg *SaslConfig) (*kafka.Dialer, error) {
	if cfg == nil {
		return &kafka.Dialer{
			Timeout:   dialTimeout,
			DualStack: true,
		}, nil
	}

	return saslDialer(cfg)
}

func saslDialer(cfg *SaslConfig) (*kafka.Dialer, error) {

	var tlsConfig *tls.Config

	if cfg.KafkaCA != "" {
		caCert, err := os.ReadFile(cfg.KafkaCA)
		if err != nil {
			logger.LogError("Unable to read kafka cert", err)
			return nil, err
		}
		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)

		tlsConfig = &tls.Config{
			RootCAs: caCertPool,
		}
	}

	mechanism, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}

	return &kafka.Dialer{
		Timeout:       dialTimeout,
		DualStack:     true,
		SASLMechanism: mechanism,
		TLS:           tlsConfig,
	}, nil
}

func saslMechanism(cfg *SaslConfig) (sasl.Mechanism, error) {
	switch strings.ToLower(cfg.SaslMechanism) {
	case "plain":
		return plain.Mechanism{
			Username: cfg.SaslUsername,
			Password: cfg.SaslPassword,
		}, nil
	case "scram-sha-512":
		scramMechanism, err := scram.Mechanism(scram.SHA512, cfg.SaslUsername, cfg.SaslPassword)
		if err != nil {
			logger.LogError("Failed to create SCRAM-SHA-512 SASL mechanism", err)
			return nil, err
		}
		return scramMechanism, nil
	case "scram-sha-256":
		scramMechanism, err := scram.Mechanism(scram.SHA256, cfg.SaslUsername, cfg.SaslPassword)
		if err != nil {
			logger.LogError("Failed to create SCRAM-SHA-256 SASL mechanism", err)
			return nil, err
		}
		return scramMechanism, nil
	}

	return nil, fmt.Errorf("unsupported SASL mechanism %q", cfg.SaslMechanism)
}
