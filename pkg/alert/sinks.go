package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/segmentio/kafka-go"
)

// LogSink writes transitions to the structured log. Always enabled so every
// transition leaves a trace even without external sinks.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, ev Event) error {
	s.logger.Warn("severity transition",
		"event_id", ev.ID,
		"monitor", ev.Monitor,
		"from", ev.From,
		"to", ev.To,
		"value", ev.Value,
	)
	return nil
}

// WebhookSink POSTs the event as JSON to a configured URL.
type WebhookSink struct {
	url    string
	client *resty.Client
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &WebhookSink{url: url, client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, ev Event) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook status %d", resp.StatusCode())
	}
	return nil
}

// KafkaSink publishes events to a Kafka topic, keyed by monitor name so a
// monitor's transitions stay ordered within one partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
		// Retries are the dispatcher's job.
		MaxAttempts: 1,
	}
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka marshal: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Monitor),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
