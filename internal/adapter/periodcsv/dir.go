package periodcsv

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ReadDir reads every <prefix>_*.csv file in dir concurrently, ordered by
// track id. Unreadable files are logged and skipped.
func ReadDir(ctx context.Context, dir, prefix string, workers int, logger *slog.Logger) ([]domain.TrackPeriods, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("read periods: no %s_*.csv files in %s", prefix, dir)
	}

	var (
		mu  sync.Mutex
		out []domain.TrackPeriods
	)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tp, err := ReadFile(p)
			if err != nil {
				logger.Warn("skipping periods file", "file", p, "error", err)
				return nil
			}
			mu.Lock()
			out = append(out, tp)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b domain.TrackPeriods) int {
		switch {
		case a.TrackID < b.TrackID:
			return -1
		case a.TrackID > b.TrackID:
			return 1
		}
		return 0
	})
	return out, nil
}
