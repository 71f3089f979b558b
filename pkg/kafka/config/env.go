package config

// Environment variables read by the kafka layer.
const (
	EnvKafkaBrokers       = "KAFKA_BROKERS"
	EnvKafkaTopic         = "KAFKA_TOPIC"
	EnvKafkaGroupID       = "KAFKA_GROUP_ID"
	EnvKafkaDLQTopic      = "KAFKA_DLQ_TOPIC"
	EnvKafkaMaxRetries    = "KAFKA_MAX_RETRIES"
	EnvKafkaRetryBackoff  = "KAFKA_RETRY_BACKOFF"
	EnvKafkaBatchTimeout  = "KAFKA_BATCH_TIMEOUT"
	EnvKafkaRequiredAcks  = "KAFKA_REQUIRED_ACKS"
	EnvKafkaMinBytes      = "KAFKA_MIN_BYTES"
	EnvKafkaMaxBytes      = "KAFKA_MAX_BYTES"
	EnvKafkaDisableDLQ    = "KAFKA_DISABLE_DLQ"
	EnvKafkaClientID      = "KAFKA_CLIENT_ID"
	EnvKafkaCommitTimeout = "KAFKA_COMMIT_TIMEOUT"
)
