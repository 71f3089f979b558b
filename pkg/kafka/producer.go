package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"pedalo/pkg/kafka/config"
	"pedalo/pkg/logger"
)

// ProducerMiddleware wraps a publish call, e.g. for logging or metrics.
type ProducerMiddleware func(next PublishFunc) PublishFunc

type PublishFunc func(ctx context.Context, msg Message) error

// Producer publishes messages to a topic with retry and, on exhaustion,
// parks them on a dead-letter topic so events are never silently lost.
type Producer struct {
	writer    *kafkago.Writer
	dlqWriter *kafkago.Writer
	cfg       config.ProducerConfig
	log       *logger.Logger
	publish   PublishFunc

	mu     sync.Mutex
	closed bool
}

func NewProducer(cfg config.ProducerConfig, log *logger.Logger, mws ...ProducerMiddleware) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		},
		cfg: cfg,
		log: log,
	}
	if !cfg.DisableDLQ {
		p.dlqWriter = &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		}
	}

	p.publish = p.writeWithRetry
	for i := len(mws) - 1; i >= 0; i-- {
		p.publish = mws[i](p.publish)
	}
	return p, nil
}

// Publish sends one message through the middleware chain.
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if len(msg.Value) == 0 {
		return ErrEmptyMessage
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	return p.publish(ctx, msg)
}

func (p *Producer) writeWithRetry(ctx context.Context, msg Message) error {
	kmsg := toKafkaMessage(msg)

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		lastErr = p.writer.WriteMessages(ctx, kmsg)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			break
		}
		p.log.Warn("kafka publish retrying",
			"topic", p.cfg.Topic,
			"attempt", attempt+1,
			"error", lastErr.Error(),
		)
	}

	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, lastErr); dlqErr != nil {
			return fmt.Errorf("publish failed and dlq failed: %w (dlq: %v)", lastErr, dlqErr)
		}
		p.log.Error("kafka publish routed to dlq",
			"topic", p.cfg.Topic,
			"dlq_topic", p.cfg.DLQTopic,
			"event_id", msg.GetEventID(),
			"error", lastErr.Error(),
		)
		return nil
	}
	return fmt.Errorf("publish to %s: %w", p.cfg.Topic, lastErr)
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	msg.Headers[HeaderOriginalTopic] = p.cfg.Topic
	msg.Headers["failure-reason"] = cause.Error()
	return p.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func toKafkaMessage(msg Message) kafkago.Message {
	headers := make([]kafkago.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return kafkago.Message{
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Timestamp,
	}
}
