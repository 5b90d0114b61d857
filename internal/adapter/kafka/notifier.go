package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/gauge-data-etl/internal/config"
	"github.com/couchcryptid/gauge-data-etl/internal/domain"
)

// Notifier publishes store update events to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured update topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &Notifier{writer: w, logger: logger}
}

// Notify serializes and publishes updates in a single WriteMessages call.
// Messages are keyed by series so updates of one series stay ordered.
func (n *Notifier) Notify(ctx context.Context, updates []domain.StoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(updates))
	for i := range updates {
		msg, err := serializeToMessage(updates[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish store updates: %w", err)
	}
	n.logger.Debug("store updates published", "count", len(msgs), "topic", n.writer.Topic)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a StoreUpdate into a Kafka message.
func serializeToMessage(u domain.StoreUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize store update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(u)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(u.Kind)},
			{Key: "processed_at", Value: []byte(u.At.Format(time.RFC3339))},
		},
	}, nil
}

func messageKey(u domain.StoreUpdate) string {
	if u.Parameter == "" {
		return strconv.Itoa(u.StationID)
	}
	return strconv.Itoa(u.StationID) + "/" + string(u.Parameter)
}
