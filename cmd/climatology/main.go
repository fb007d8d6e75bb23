// Command climatology runs the cyclone climatology batch jobs.
//
//	climatology segment     segment tracks into phase periods
//	climatology density     phase density datasets per season
//	climatology clusters    density dataset per track cluster
//	climatology difference  phase-to-phase change maps over regional datasets
//	climatology species     life-cycle configuration and duration reports
//
// All settings come from the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/cyclone-climatology/internal/adapter/httpadapter"
	"github.com/couchcryptid/cyclone-climatology/internal/config"
	"github.com/couchcryptid/cyclone-climatology/internal/observability"
	"github.com/couchcryptid/cyclone-climatology/internal/pipeline"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type jobFunc func(*app, context.Context) error

var jobs = map[string]jobFunc{
	"segment":    (*app).segment,
	"density":    (*app).density,
	"clusters":   (*app).clusters,
	"difference": (*app).difference,
	"species":    (*app).species,
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: climatology <segment|density|clusters|difference|species>")
}

// lookupJob resolves the subcommand named by args.
func lookupJob(args []string) (string, jobFunc, bool) {
	if len(args) != 1 {
		return "", nil, false
	}
	job, ok := jobs[args[0]]
	return args[0], job, ok
}

func main() {
	name, job, ok := lookupJob(os.Args[1:])
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	runID := uuid.NewString()
	logger = logger.With("job", name, "run_id", runID)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		progress: pipeline.NewProgress(name, runID),
		runID:    runID,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, a.progress, func() any { return a.progress.Status() }, prometheus.DefaultGatherer, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	a.metrics.JobRunning.Set(1)
	runErr := job(a, ctx)
	a.metrics.JobRunning.Set(0)
	a.progress.Finish()
	if runErr != nil {
		logger.Error("job failed", "error", runErr)
	} else {
		logger.Info("job finished", "units", a.progress.Status().Units, "failed", a.progress.Status().Failed)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	pushErr := observability.Push(shutdownCtx, cfg.PushgatewayURL, "cyclone_climatology_"+name, runID, prometheus.DefaultGatherer)
	if pushErr != nil {
		logger.Error("metrics push failed", "error", pushErr)
	}

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil || pushErr != nil {
		os.Exit(1)
	}
}
