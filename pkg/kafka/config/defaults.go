package config

import "time"

const (
	DefaultBrokers       = "localhost:9092"
	DefaultTopic         = "booking-events"
	DefaultGroupID       = "pedalo-notifier"
	DefaultDLQSuffix     = ".dlq"
	DefaultMaxRetries    = 3
	DefaultRetryBackoff  = 500 * time.Millisecond
	DefaultBatchTimeout  = 50 * time.Millisecond
	DefaultRequiredAcks  = -1 // all in-sync replicas
	DefaultMinBytes      = 1
	DefaultMaxBytes      = 1 << 20
	DefaultCommitTimeout = 5 * time.Second
	DefaultClientID      = "pedalo"
)
