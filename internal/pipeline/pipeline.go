package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/observability"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
	"golang.org/x/sync/errgroup"
)

// TrackSource yields tracks one at a time, returning io.EOF when exhausted.
type TrackSource interface {
	Next(ctx context.Context) (domain.Track, error)
}

// PeriodsLoader writes a batch of segmented tracks to a destination.
type PeriodsLoader interface {
	LoadBatch(ctx context.Context, batch []domain.TrackPeriods) error
}

// Settings tune batch size and parallelism of the segmentation run.
type Settings struct {
	BatchSize int
	Workers   int
	Segment   phase.Options
}

// Summary reports the outcome of a segmentation run.
type Summary struct {
	Tracks    int
	Segmented int
	Skipped   map[string]int // by skip reason
}

// Pipeline reads tracks, segments them in parallel batches and loads the
// resulting periods.
type Pipeline struct {
	source    TrackSource
	segmenter phase.Segmenter
	loader    PeriodsLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	progress  *Progress
	settings  Settings
}

// New creates a Pipeline with the given stages and observability.
func New(src TrackSource, seg phase.Segmenter, l PeriodsLoader, logger *slog.Logger, metrics *observability.Metrics, progress *Progress, s Settings) *Pipeline {
	if s.BatchSize <= 0 {
		s.BatchSize = 1
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}
	return &Pipeline{
		source:    src,
		segmenter: seg,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		progress:  progress,
		settings:  s,
	}
}

// Run segments every track from the source. Tracks the segmenter rejects are
// logged, counted and skipped. A load failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	p.logger.Info("segmentation started", "batch_size", p.settings.BatchSize, "workers", p.settings.Workers)

	sum := Summary{Skipped: make(map[string]int)}
	for {
		batch, err := p.extractBatch(ctx)
		if err != nil {
			return sum, err
		}
		if len(batch) == 0 {
			break
		}
		sum.Tracks += len(batch)
		p.metrics.BatchSize.Observe(float64(len(batch)))

		out, err := p.transformBatch(ctx, batch, &sum)
		if err != nil {
			return sum, err
		}
		if len(out) > 0 {
			if err := p.loader.LoadBatch(ctx, out); err != nil {
				p.logger.Error("load batch failed", "error", err, "batch_size", len(out))
				return sum, fmt.Errorf("load periods: %w", err)
			}
			p.metrics.PeriodsWritten.Add(float64(len(out)))
			sum.Segmented += len(out)
		}
		p.progress.Done()
	}

	p.logger.Info("segmentation finished",
		"tracks", sum.Tracks,
		"segmented", sum.Segmented,
		"skipped", sum.Tracks-sum.Segmented,
	)
	return sum, nil
}

// extractBatch reads up to BatchSize tracks. An empty batch means the source
// is exhausted.
func (p *Pipeline) extractBatch(ctx context.Context) ([]domain.Track, error) {
	batch := make([]domain.Track, 0, p.settings.BatchSize)
	for len(batch) < p.settings.BatchSize {
		t, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tracks: %w", err)
		}
		batch = append(batch, t)
	}
	return batch, nil
}

// transformBatch segments a batch concurrently and returns the successes in
// input order.
func (p *Pipeline) transformBatch(ctx context.Context, batch []domain.Track, sum *Summary) ([]domain.TrackPeriods, error) {
	results := make([]*domain.TrackPeriods, len(batch))
	reasons := make([]string, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.Workers)
	for i, t := range batch {
		g.Go(func() error {
			start := time.Now()
			res, err := p.segmenter.Segment(gctx, phase.SeriesFromTrack(t), p.settings.Segment)
			p.metrics.SegmentDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				reasons[i] = phase.SkipReason(err)
				p.logger.Debug("skipping track", "track_id", t.ID, "reason", reasons[i], "error", err)
				return nil
			}
			results[i] = &domain.TrackPeriods{TrackID: t.ID, Periods: res.Periods}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.TrackPeriods, 0, len(batch))
	for i, r := range results {
		if r == nil {
			sum.Skipped[reasons[i]]++
			p.metrics.SegmentSkipped.WithLabelValues(reasons[i]).Inc()
			p.progress.Fail()
			continue
		}
		out = append(out, *r)
	}
	p.metrics.TracksSegmented.Add(float64(len(out)))
	return out, nil
}
