package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProducerConfig configures a publishing writer and its DLQ writer.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	DLQTopic     string
	ClientID     string
	MaxRetries   int
	RetryBackoff time.Duration
	BatchTimeout time.Duration
	RequiredAcks int
	DisableDLQ   bool
}

// ConsumerConfig configures a consumer-group reader.
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	GroupID       string
	DLQTopic      string
	ClientID      string
	MaxRetries    int
	RetryBackoff  time.Duration
	MinBytes      int
	MaxBytes      int
	CommitTimeout time.Duration
	DisableDLQ    bool
}

func LoadProducerConfig() ProducerConfig {
	topic := getEnv(EnvKafkaTopic, DefaultTopic)
	return ProducerConfig{
		Brokers:      splitBrokers(getEnv(EnvKafkaBrokers, DefaultBrokers)),
		Topic:        topic,
		DLQTopic:     getEnv(EnvKafkaDLQTopic, topic+DefaultDLQSuffix),
		ClientID:     getEnv(EnvKafkaClientID, DefaultClientID),
		MaxRetries:   getEnvInt(EnvKafkaMaxRetries, DefaultMaxRetries),
		RetryBackoff: getEnvDuration(EnvKafkaRetryBackoff, DefaultRetryBackoff),
		BatchTimeout: getEnvDuration(EnvKafkaBatchTimeout, DefaultBatchTimeout),
		RequiredAcks: getEnvInt(EnvKafkaRequiredAcks, DefaultRequiredAcks),
		DisableDLQ:   getEnvBool(EnvKafkaDisableDLQ, false),
	}
}

func LoadConsumerConfig() ConsumerConfig {
	topic := getEnv(EnvKafkaTopic, DefaultTopic)
	return ConsumerConfig{
		Brokers:       splitBrokers(getEnv(EnvKafkaBrokers, DefaultBrokers)),
		Topic:         topic,
		GroupID:       getEnv(EnvKafkaGroupID, DefaultGroupID),
		DLQTopic:      getEnv(EnvKafkaDLQTopic, topic+DefaultDLQSuffix),
		ClientID:      getEnv(EnvKafkaClientID, DefaultClientID),
		MaxRetries:    getEnvInt(EnvKafkaMaxRetries, DefaultMaxRetries),
		RetryBackoff:  getEnvDuration(EnvKafkaRetryBackoff, DefaultRetryBackoff),
		MinBytes:      getEnvInt(EnvKafkaMinBytes, DefaultMinBytes),
		MaxBytes:      getEnvInt(EnvKafkaMaxBytes, DefaultMaxBytes),
		CommitTimeout: getEnvDuration(EnvKafkaCommitTimeout, DefaultCommitTimeout),
		DisableDLQ:    getEnvBool(EnvKafkaDisableDLQ, false),
	}
}

func (c ProducerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka producer: no brokers configured")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka producer: topic is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("kafka producer: max retries must be >= 0")
	}
	return nil
}

func (c ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka consumer: no brokers configured")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka consumer: topic is required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka consumer: group id is required")
	}
	if c.MinBytes > c.MaxBytes {
		return fmt.Errorf("kafka consumer: min bytes %d exceeds max bytes %d", c.MinBytes, c.MaxBytes)
	}
	return nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
