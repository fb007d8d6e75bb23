//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/adapter/kafka"
	"github.com/couchcryptid/cyclone-climatology/internal/config"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/observability"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
	"github.com/couchcryptid/cyclone-climatology/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testPeriodsTopic = "test-periods"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("climatology-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type periodsRecord struct {
	Message kafka.PeriodsMessage
	Key     string
	Headers map[string]string
}

func readPeriods(ctx context.Context, t *testing.T, consumer *kafkago.Reader) periodsRecord {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from periods topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var pm kafka.PeriodsMessage
	require.NoError(t, json.Unmarshal(msg.Value, &pm), "unmarshal periods message")
	return periodsRecord{Message: pm, Key: string(msg.Key), Headers: headers}
}

// troughTrack builds a six-hourly track whose vorticity has a single
// parabolic minimum halfway through.
func troughTrack(t *testing.T, id int64, n int) domain.Track {
	t.Helper()
	t0 := time.Date(2010, time.July, 1, 0, 0, 0, 0, time.UTC)
	mid := float64(n / 2)
	obs := make([]domain.Observation, n)
	for i := range obs {
		d := float64(i) - mid
		obs[i] = domain.Observation{
			Time:      t0.Add(time.Duration(6*i) * time.Hour),
			Lat:       -30 - 0.1*float64(i),
			Lon:       -50 + 0.2*float64(i),
			Vorticity: -1e-5 * (mid - d*d/mid),
		}
	}
	tr, err := domain.NewTrack(id, obs)
	require.NoError(t, err)
	return tr
}

func TestSegmentPipelinePublishesPeriods(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testPeriodsTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaPeriodsTopic: testPeriodsTopic,
	}
	writer := kafka.NewWriter(cfg, "run-it", discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	short := troughTrack(t, 103, 2)
	tracks := []domain.Track{troughTrack(t, 101, 21), troughTrack(t, 102, 31), short}
	metrics, _ := observability.NewMetricsForTesting()
	progress := pipeline.NewProgress("segment", "run-it")
	opts := phase.DefaultOptions()
	opts.UseSmoothing = phase.Off
	opts.UseSmoothingTwice = phase.Off
	p := pipeline.New(pipeline.NewTrackSource(tracks), phase.NewCyclePhaser(discardLogger()), writer, discardLogger(), metrics, progress,
		pipeline.Settings{BatchSize: 2, Workers: 2, Segment: opts})

	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Tracks)
	assert.Equal(t, 2, summary.Segmented)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testPeriodsTopic,
		GroupID:     "test-periods-" + strconv.FormatInt(time.Now().UnixNano(), 10),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	seen := map[int64]periodsRecord{}
	for len(seen) < 2 {
		rec := readPeriods(ctx, t, consumer)
		seen[rec.Message.TrackID] = rec
	}

	for _, id := range []int64{101, 102} {
		rec, ok := seen[id]
		require.True(t, ok, "track %d not published", id)
		assert.Equal(t, strconv.FormatInt(id, 10), rec.Key)
		assert.Equal(t, "run-it", rec.Message.RunID)
		assert.Equal(t, rec.Message.LifeCycle, rec.Headers["life_cycle"])
		assert.Contains(t, rec.Message.LifeCycle, "mature")
		_, err := time.Parse(time.RFC3339, rec.Headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")
		assert.NotEmpty(t, rec.Message.Periods)
	}

	// The two-point track is too short to segment, so nothing else reaches the topic.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no third message on periods topic")
}
