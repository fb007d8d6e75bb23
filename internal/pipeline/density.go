package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/observability"
	"golang.org/x/sync/errgroup"
)

// DatasetLoader writes a completed density dataset.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, ds *density.Dataset) error
}

// ClustersDataset is the name of the cluster density dataset.
const ClustersDataset = "track_density_clusters"

// DensityExporter computes density datasets for groups of observations and
// hands them to a loader.
type DensityExporter struct {
	estimator *density.Estimator
	loader    DatasetLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	progress  *Progress
	workers   int
	runID     string
}

// NewDensityExporter creates a DensityExporter computing up to workers
// fields at once.
func NewDensityExporter(est *density.Estimator, l DatasetLoader, logger *slog.Logger, metrics *observability.Metrics, progress *Progress, workers int, runID string) *DensityExporter {
	if workers <= 0 {
		workers = 1
	}
	return &DensityExporter{
		estimator: est,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		progress:  progress,
		workers:   workers,
		runID:     runID,
	}
}

// PhaseDatasetName names the phase density dataset of a scope and season.
func PhaseDatasetName(scope string, s domain.Season) string {
	name := scope + "_track_density"
	if s != domain.AllYear {
		name += "_" + string(s)
	}
	return name
}

// ExportPhases writes one dataset per season with a field per phase plus
// peak intensity. Only tracks with periods take part; the time-unit count is
// the number of distinct year-months among the season's observations.
func (x *DensityExporter) ExportPhases(ctx context.Context, scope string, tracks []domain.Track, periods map[int64]domain.Periods, seasons []domain.Season) ([]*density.Dataset, error) {
	var labelled []domain.LabelledObservation
	for _, t := range tracks {
		ps, ok := periods[t.ID]
		if !ok {
			continue
		}
		labelled = append(labelled, domain.LabelObservations(t, ps)...)
	}
	if len(labelled) == 0 {
		return nil, fmt.Errorf("export phase density: %w", density.ErrNoObservations)
	}

	var out []*density.Dataset
	for _, s := range seasons {
		obs := domain.FilterSeason(labelled, s)
		name := PhaseDatasetName(scope, s)
		if len(obs) == 0 {
			x.logger.Warn("no observations in season, skipping", "dataset", name, "season", s.String())
			continue
		}
		times := make([]time.Time, len(obs))
		for i, o := range obs {
			times[i] = o.Time
		}
		subsets := append(domain.PhaseSubsets(obs), domain.PeakIntensitySubset(obs))

		ds, err := x.export(ctx, name, fmt.Sprintf("%s track density %s", scope, s), subsets, domain.TimeUnits(times))
		if err != nil {
			return out, err
		}
		if ds != nil {
			out = append(out, ds)
		}
	}
	return out, nil
}

// ExportClusters writes a dataset with a field per cluster. Tracks absent
// from the assignment are ignored, including for the time-unit count.
func (x *DensityExporter) ExportClusters(ctx context.Context, tracks []domain.Track, clusters domain.ClusterAssignment) (*density.Dataset, error) {
	var (
		obs   []domain.Observation
		times []time.Time
	)
	for _, t := range tracks {
		if _, ok := clusters[t.ID]; !ok {
			continue
		}
		for _, o := range t.Observations {
			obs = append(obs, o)
			times = append(times, o.Time)
		}
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("export cluster density: %w", density.ErrNoObservations)
	}

	ds, err := x.export(ctx, ClustersDataset, "track density by cluster", domain.ClusterSubsets(obs, clusters), domain.TimeUnits(times))
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, fmt.Errorf("export cluster density: %w", density.ErrNoObservations)
	}
	return ds, nil
}

// export computes the subsets and loads the dataset. It returns nil when no
// field could be computed.
func (x *DensityExporter) export(ctx context.Context, name, title string, subsets []domain.Subset, timeUnits int) (*density.Dataset, error) {
	fields, err := x.computeFields(ctx, name, subsets, timeUnits)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		x.logger.Warn("no density fields computed, skipping dataset", "dataset", name)
		return nil, nil
	}

	ds := &density.Dataset{Name: name, Title: title, RunID: x.runID, Fields: fields}
	if err := x.loader.LoadDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", name, err)
	}
	x.logger.Info("density dataset written", "dataset", name, "fields", len(fields), "time_units", timeUnits)
	return ds, nil
}

// computeFields estimates every subset concurrently, keeping input order.
// Subsets the estimator rejects are logged and dropped.
func (x *DensityExporter) computeFields(ctx context.Context, dataset string, subsets []domain.Subset, timeUnits int) ([]*density.Field, error) {
	fields := make([]*density.Field, len(subsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, s := range subsets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			f, err := x.estimator.ComputeSubset(s, timeUnits)
			x.metrics.DensityDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				level := slog.LevelWarn
				if errors.Is(err, density.ErrNoObservations) {
					level = slog.LevelDebug
				}
				x.logger.Log(gctx, level, "skipping density subset", "dataset", dataset, "subset", s.Name, "error", err)
				x.progress.Fail()
				return nil
			}
			x.metrics.DensityFields.Inc()
			x.progress.Done()
			fields[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := fields[:0]
	for _, f := range fields {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}
