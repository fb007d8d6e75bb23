package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/cyclone-climatology/internal/adapter/kafka"
	"github.com/couchcryptid/cyclone-climatology/internal/adapter/netcdf"
	"github.com/couchcryptid/cyclone-climatology/internal/adapter/periodcsv"
	"github.com/couchcryptid/cyclone-climatology/internal/adapter/trackcsv"
	"github.com/couchcryptid/cyclone-climatology/internal/config"
	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/lifecycle"
	"github.com/couchcryptid/cyclone-climatology/internal/observability"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
	"github.com/couchcryptid/cyclone-climatology/internal/pipeline"
)

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	progress *pipeline.Progress
	runID    string
}

// readTracks loads every track and applies the genesis region filter.
func (a *app) readTracks(ctx context.Context) ([]domain.Track, error) {
	res, err := trackcsv.ReadDir(ctx, a.cfg.TracksDir, a.cfg.Workers, a.logger)
	if err != nil {
		return nil, err
	}
	a.metrics.TracksRead.Add(float64(len(res.Tracks)))
	a.metrics.FilesSkipped.Add(float64(len(res.Skipped)))
	a.logger.Info("tracks read", "files", res.Files, "tracks", len(res.Tracks), "skipped", len(res.Skipped))

	tracks := res.Tracks
	if a.cfg.Region != "" {
		r, err := domain.LookupRegion(a.cfg.Region)
		if err != nil {
			return nil, err
		}
		tracks = domain.FilterByGenesisRegion(tracks, r)
		a.logger.Info("genesis region filter applied", "region", r.Name, "before", len(res.Tracks), "after", len(tracks))
	}
	if len(tracks) == 0 {
		return nil, errors.New("read tracks: no tracks to process")
	}
	return tracks, nil
}

func (a *app) segmenter() phase.Segmenter {
	var seg phase.Segmenter = phase.NewCyclePhaser(a.logger)
	if a.cfg.SegmentCacheSize > 0 {
		seg = phase.NewCachedSegmenter(seg, a.cfg.SegmentCacheSize, a.metrics.ObserveCache)
	}
	return seg
}

func (a *app) segment(ctx context.Context) error {
	tracks, err := a.readTracks(ctx)
	if err != nil {
		return err
	}

	dirWriter, err := periodcsv.NewDirWriter(a.cfg.PeriodsDir, a.cfg.PeriodsPrefix)
	if err != nil {
		return err
	}
	loaders := pipeline.MultiLoader{dirWriter}
	if a.cfg.KafkaEnabled() {
		loaders = append(loaders, kafka.NewWriter(a.cfg, a.runID, a.logger))
		a.logger.Info("publishing periods to kafka", "topic", a.cfg.KafkaPeriodsTopic)
	}
	defer func() {
		if err := loaders.Close(); err != nil {
			a.logger.Error("close loaders failed", "error", err)
		}
	}()

	p := pipeline.New(pipeline.NewTrackSource(tracks), a.segmenter(), loaders, a.logger, a.metrics, a.progress, pipeline.Settings{
		BatchSize: a.cfg.BatchSize,
		Workers:   a.cfg.Workers,
		Segment:   a.cfg.SegmentOptions,
	})
	_, err = p.Run(ctx)
	return err
}

func (a *app) exporter() (*pipeline.DensityExporter, error) {
	est, err := density.NewEstimator(a.cfg.Density)
	if err != nil {
		return nil, err
	}
	w, err := netcdf.NewDirWriter(a.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	return pipeline.NewDensityExporter(est, w, a.logger, a.metrics, a.progress, a.cfg.Workers, a.runID), nil
}

func (a *app) readPeriods(ctx context.Context) ([]domain.TrackPeriods, error) {
	tps, err := periodcsv.ReadDir(ctx, a.cfg.PeriodsDir, a.cfg.PeriodsPrefix, a.cfg.Workers, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("periods read", "tracks", len(tps))
	return tps, nil
}

func (a *app) density(ctx context.Context) error {
	tracks, err := a.readTracks(ctx)
	if err != nil {
		return err
	}
	tps, err := a.readPeriods(ctx)
	if err != nil {
		return err
	}
	periods := make(map[int64]domain.Periods, len(tps))
	for _, tp := range tps {
		// Tracks without a mature phase do not take part.
		if tp.Periods.Has(domain.PhaseMature) {
			periods[tp.TrackID] = tp.Periods
		}
	}

	x, err := a.exporter()
	if err != nil {
		return err
	}
	_, err = x.ExportPhases(ctx, a.cfg.Scope(), tracks, periods, a.cfg.Seasons)
	return err
}

func (a *app) clusters(ctx context.Context) error {
	if a.cfg.ClustersFile == "" {
		return errors.New("CLUSTERS_FILE is required for the clusters job")
	}
	assignment, err := trackcsv.ReadClusters(a.cfg.ClustersFile, a.cfg.ClusterOffset)
	if err != nil {
		return err
	}
	tracks, err := a.readTracks(ctx)
	if err != nil {
		return err
	}

	x, err := a.exporter()
	if err != nil {
		return err
	}
	_, err = x.ExportClusters(ctx, tracks, assignment)
	return err
}

// difference reads the regional phase datasets of each season from the
// output directory and writes their change maps.
func (a *app) difference(ctx context.Context) error {
	x, err := a.exporter()
	if err != nil {
		return err
	}
	for _, s := range a.cfg.Seasons {
		var regional []*density.Dataset
		for _, r := range domain.Regions() {
			path := filepath.Join(a.cfg.OutputDir, pipeline.PhaseDatasetName(r.Name, s)+".nc")
			ds, err := netcdf.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				a.logger.Warn("regional dataset not found, skipping", "file", path)
				continue
			}
			if err != nil {
				return err
			}
			regional = append(regional, ds)
		}
		if len(regional) == 0 {
			return fmt.Errorf("difference %s: no regional datasets in %s", s, a.cfg.OutputDir)
		}
		if _, err := x.ExportDifferences(ctx, s, regional, pipeline.DefaultPhasePairs()); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) species(ctx context.Context) error {
	tps, err := a.readPeriods(ctx)
	if err != nil {
		return err
	}
	report := lifecycle.NewReport(tps)
	paths, err := periodcsv.WriteReportFiles(a.cfg.OutputDir, a.cfg.Scope(), report)
	if err != nil {
		return err
	}
	a.progress.Done()
	a.logger.Info("species report written", "tracks", report.Tracks, "configurations", len(report.Configurations), "files", paths)
	return nil
}
