package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/leachate-prediction-service/internal/config"
	"github.com/couchcryptid/leachate-prediction-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces prediction events to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer  *kafkago.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured prediction topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPredictionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, timeout: cfg.KafkaPublishTimeout, logger: logger}
}

// Publish serializes one prediction and writes it synchronously, bounded by
// the configured publish timeout.
func (w *Writer) Publish(ctx context.Context, p domain.Prediction) error {
	msg, err := serializeToMessage(p)
	if err != nil {
		return err
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write prediction %s: %w", p.ID, err)
	}
	w.logger.Debug("prediction published", "prediction_id", p.ID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// predictionMessage is the wire form of a prediction event.
type predictionMessage struct {
	ID          string             `json:"id"`
	VolumeML    float64            `json:"volume_ml"`
	Chemistry   map[string]float64 `json:"chemistry"`
	Event       domain.EventParams `json:"event"`
	Vector      []float64          `json:"vector"`
	PredictedAt time.Time          `json:"predicted_at"`
}

// serializeToMessage marshals a Prediction into a Kafka message keyed by its ID.
func serializeToMessage(p domain.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(predictionMessage{
		ID:          p.ID,
		VolumeML:    p.VolumeML,
		Chemistry:   p.ChemistryMap(),
		Event:       p.Event,
		Vector:      p.Vector,
		PredictedAt: p.PredictedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(p.Event.Type)},
			{Key: "predicted_at", Value: []byte(p.PredictedAt.Format(time.RFC3339))},
		},
	}, nil
}
