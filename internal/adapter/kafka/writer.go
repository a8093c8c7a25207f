package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// ReportWriter produces catchment reports to a Kafka topic.
// It implements pipeline.ReportPublisher.
type ReportWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReportWriter creates an asynchronous Kafka producer for the report
// topic. Messages are flushed when batchSize accumulate or batchTimeout
// elapses; delivery failures are logged from the completion callback.
func NewReportWriter(brokers []string, topic string, batchSize int, batchTimeout time.Duration, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	rw := &ReportWriter{logger: logger}
	rw.writer = &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             rw.completed,
	}
	return rw
}

func (w *ReportWriter) completed(messages []kafkago.Message, err error) {
	if err == nil {
		return
	}
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, string(m.Key))
	}
	w.logger.Error("report delivery failed", "topic", w.writer.Topic, "report_ids", ids, "error", err)
}

// Publish serializes a report and queues it keyed by report ID, so every
// version of a report lands on the same partition. It returns once the
// message is queued, without waiting for the batch to flush.
func (w *ReportWriter) Publish(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report %s: %w", report.ID, err)
	}
	w.logger.Debug("report queued", "report_id", report.ID, "topic", w.writer.Topic, "bytes", len(msg.Value))
	return nil
}

// Close flushes queued reports and releases the producer.
func (w *ReportWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage converts a Report into a Kafka message with headers in
// a stable order.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	rm, err := domain.SerializeReport(report)
	if err != nil {
		return kafkago.Message{}, err
	}

	keys := make([]string, 0, len(rm.Headers))
	for k := range rm.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(rm.Headers[k])})
	}
	return kafkago.Message{
		Key:     rm.Key,
		Value:   rm.Value,
		Headers: headers,
	}, nil
}
