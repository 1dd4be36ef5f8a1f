package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/couchcryptid/cwa-forecast-etl/internal/config"
	"github.com/couchcryptid/cwa-forecast-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes output documents to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Save publishes one document keyed by its kind, so consumers of a compacted
// topic always see the latest document of each kind.
func (w *Writer) Save(ctx context.Context, ev domain.OutputEvent) error {
	if err := w.writer.WriteMessages(ctx, toMessage(ev)); err != nil {
		return fmt.Errorf("publish %s document: %w", ev.Kind, err)
	}
	w.logger.Info("document published", "kind", ev.Kind, "topic", w.writer.Topic, "bytes", len(ev.Value))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage maps an OutputEvent onto a Kafka message. Headers are sorted by
// key for a stable wire order.
func toMessage(ev domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(ev.Headers))
	for k := range ev.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(ev.Headers[k])})
	}

	return kafkago.Message{
		Key:     ev.Key,
		Value:   ev.Value,
		Headers: headers,
		Time:    ev.GeneratedAt,
	}
}
