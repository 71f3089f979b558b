package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"pedalo/pkg/kafka/config"
	"pedalo/pkg/logger"
)

// Consumer reads from a consumer group and hands each message to a
// handler. A failed message is retried with backoff; once retries are
// exhausted it goes to the DLQ and the offset is committed so one bad
// message cannot wedge the partition.
type Consumer struct {
	reader    *kafkago.Reader
	dlqWriter *kafkago.Writer
	cfg       config.ConsumerConfig
	log       *logger.Logger

	mu     sync.Mutex
	closed bool
}

func NewConsumer(cfg config.ConsumerConfig, log *logger.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		}),
		cfg: cfg,
		log: log,
	}
	if !cfg.DisableDLQ {
		c.dlqWriter = &kafkago.Writer{
			Addr:     kafkago.TCP(cfg.Brokers...),
			Topic:    cfg.DLQTopic,
			Balancer: &kafkago.Hash{},
		}
	}
	return c, nil
}

// Consume blocks, fetching and handling messages until ctx is cancelled
// or the consumer is closed.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		kmsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || c.isClosed() {
				return nil
			}
			return err
		}

		msg := fromKafkaMessage(kmsg)
		if err := c.handleWithRetry(ctx, msg, handler); err != nil {
			if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
				c.log.Error("dlq write failed, message will be redelivered",
					"topic", c.cfg.Topic,
					"offset", kmsg.Offset,
					"error", dlqErr.Error(),
				)
				continue // do not commit, let the group redeliver
			}
			c.log.Error("message routed to dlq",
				"topic", c.cfg.Topic,
				"dlq_topic", c.cfg.DLQTopic,
				"event_id", msg.GetEventID(),
				"error", err.Error(),
			)
		}

		commitCtx, cancel := context.WithTimeout(context.Background(), c.cfg.CommitTimeout)
		if err := c.reader.CommitMessages(commitCtx, kmsg); err != nil {
			c.log.Error("commit failed", "offset", kmsg.Offset, "error", err.Error())
		}
		cancel()
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg Message, handler MessageHandler) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryBackoff * time.Duration(attempt)):
			}
			msg.IncrementRetryCount()
		}
		if lastErr = handler(ctx, msg); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	if c.dlqWriter == nil {
		return nil
	}
	msg.Headers[HeaderOriginalTopic] = c.cfg.Topic
	msg.Headers["failure-reason"] = cause.Error()
	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

func (c *Consumer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func fromKafkaMessage(kmsg kafkago.Message) Message {
	headers := make(map[string]string, len(kmsg.Headers))
	for _, h := range kmsg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(kmsg.Key),
		Value:     kmsg.Value,
		Headers:   headers,
		Topic:     kmsg.Topic,
		Partition: kmsg.Partition,
		Offset:    kmsg.Offset,
		Timestamp: kmsg.Time,
	}
}
