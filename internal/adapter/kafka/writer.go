package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/config"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// PeriodsMessage is the JSON body published for each segmented track.
type PeriodsMessage struct {
	TrackID     int64          `json:"track_id"`
	LifeCycle   string         `json:"life_cycle"`
	Periods     domain.Periods `json:"periods"`
	RunID       string         `json:"run_id"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes segmented periods to a Kafka topic.
// It implements pipeline.PeriodsLoader.
type Writer struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured periods topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPeriodsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// LoadBatch serializes and publishes a batch of track periods in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, batch []domain.TrackPeriods) error {
	if len(batch) == 0 {
		return nil
	}
	now := domain.Now()
	msgs := make([]kafkago.Message, len(batch))
	for i := range batch {
		msg, err := serializeToMessage(batch[i], w.runID, now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish periods: %w", err)
	}
	w.logger.Debug("published periods", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one track's periods into a Kafka message keyed
// by track id.
func serializeToMessage(tp domain.TrackPeriods, runID string, processedAt time.Time) (kafkago.Message, error) {
	lifeCycle := tp.Periods.LifeCycle()
	data, err := json.Marshal(PeriodsMessage{
		TrackID:     tp.TrackID,
		LifeCycle:   lifeCycle,
		Periods:     tp.Periods,
		RunID:       runID,
		ProcessedAt: processedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize periods of track %d: %w", tp.TrackID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(tp.TrackID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "life_cycle", Value: []byte(lifeCycle)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
