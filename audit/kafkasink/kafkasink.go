// Package kafkasink publishes authcore audit events to a Kafka topic.
package kafkasink

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 5 * time.Second

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink is an authcore.AuditSink. Each event becomes one JSON message keyed
// by account id so an account's events stay ordered within a partition.
// Write failures are logged and dropped.
type Sink struct {
	writer  Writer
	logger  *slog.Logger
	timeout time.Duration
}

var _ authcore.AuditSink = (*Sink)(nil)

type Option func(*Sink)

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWriteTimeout bounds each publish. Zero keeps the default.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(brokers []string, topic string, opts ...Option) *Sink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewWithWriter(w, opts...)
}

// NewWithWriter allows injecting a test writer.
func NewWithWriter(w Writer, opts ...Option) *Sink {
	s := &Sink{writer: w, logger: logging.Discard(), timeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Emit(ctx context.Context, event authcore.AuditEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit event marshal failed", "event_type", event.EventType, "error", err)
		return
	}

	key := event.AccountID
	if key == "" {
		key = event.EventType
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
		s.logger.WarnContext(ctx, "audit event publish failed",
			"event_type", event.EventType,
			"event_id", event.ID,
			"error", err,
		)
	}
}

// Close flushes and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
