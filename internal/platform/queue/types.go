package queue

import (
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/config"
)

type ProducerConfig struct {
	Brokers      []string
	SaslConfig   *SaslConfig
	Topic        string
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Balancer     string
}

type ConsumerConfig struct {
	Brokers    []string
	SaslConfig *SaslConfig
	Topic      string
	GroupID    string
}

type SaslConfig struct {
	SaslMechanism        string
	SaslSecurityProtocol string
	SaslUsername         string
	SaslPassword         string
	KafkaCA              string
}

func saslConfigFromConfig(cfg *config.Config) *SaslConfig {
	if cfg.KafkaUsername == "" {
		return nil
	}

	return &SaslConfig{
		SaslMechanism: cfg.KafkaSASLMechanism,
		SaslUsername:  cfg.KafkaUsername,
		SaslPassword:  cfg.KafkaPassword,
		KafkaCA:       cfg.KafkaCA,
	}
}

// ProducerConfigFromConfig builds the writer settings for topic.  The writer
// batch matches the delivery batch so one Publish call is one produce request.
func ProducerConfigFromConfig(cfg *config.Config, topic string) *ProducerConfig {
	return &ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		SaslConfig:   saslConfigFromConfig(cfg),
		Topic:        topic,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   cfg.KafkaBatchBytes,
		BatchTimeout: 10 * time.Millisecond,
		Balancer:     cfg.KafkaBalancer,
	}
}

func ConsumerConfigFromConfig(cfg *config.Config) *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:    cfg.KafkaBrokers,
		SaslConfig: saslConfigFromConfig(cfg),
		Topic:      cfg.KafkaTopic,
		GroupID:    cfg.KafkaTailGroupID,
	}
}
