package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/lysyi3m/filing-comb/app/feed"
)

// MessageWriter is the subset of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer mirrors emitted alerts to a Kafka topic, keyed by filing id so
// every event for one filing lands on the same partition.
type Producer struct {
	writer MessageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	slog.Info("Kafka producer initialized", "brokers", brokers, "topic", topic)
	return &Producer{writer: writer, topic: topic}
}

func newProducerWithWriter(writer MessageWriter, topic string) *Producer {
	return &Producer{writer: writer, topic: topic}
}

// SaveAlert publishes the alert. It always reports the alert as inserted;
// dedup is the primary sink's job.
func (p *Producer) SaveAlert(ctx context.Context, alert feed.Alert) (bool, error) {
	msg, err := newMessage(alert)
	if err != nil {
		return false, err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return false, fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Debug("Alert published", "topic", p.topic, "filing_id", alert.FilingID)
	return true, nil
}

func newMessage(alert feed.Alert) (kafka.Message, error) {
	value, err := json.Marshal(alert)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal alert: %w", err)
	}

	headers := []kafka.Header{{Key: "feedUrl", Value: []byte(alert.FeedURL)}}
	if alert.FilingType != nil {
		headers = append(headers, kafka.Header{Key: "filingType", Value: []byte(*alert.FilingType)})
	}

	return kafka.Message{
		Key:     []byte(alert.FilingID),
		Value:   value,
		Headers: headers,
		Time:    alert.ScrapedAt,
	}, nil
}

func (p *Producer) Close() error {
	slog.Debug("Closing Kafka producer", "topic", p.topic)
	return p.writer.Close()
}

var _ feed.AlertSink = (*Producer)(nil)
