// Package trackcsv reads and writes cyclone track CSV files.
//
// Raw TRACK exports have no header and the columns
// track_id,date,lon,lat,vor42. Headered files are matched by column name,
// accepting the aliases used across the processed datasets.
package trackcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingColumn is returned when a headered file lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrBadRow is returned for a row that cannot be parsed.
	ErrBadRow = errors.New("bad row")
)

// DateLayouts are tried in order when parsing the date column.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006010215",
}

type column int

const (
	colTrackID column = iota
	colDate
	colLon
	colLat
	colVorticity
	numColumns
)

var aliases = map[string]column{
	"track_id": colTrackID,
	"date":     colDate,
	"time":     colDate,
	"lon":      colLon,
	"lon vor":  colLon,
	"lat":      colLat,
	"lat vor":  colLat,
	"vor42":    colVorticity,
	"vor 42":   colVorticity,
	"vor":      colVorticity,
	"zeta":     colVorticity,
}

var columnNames = [numColumns]string{"track_id", "date", "lon", "lat", "vor42"}

// layout maps each column to its index in a row.
type layout struct {
	idx  [numColumns]int
	zeta bool // vorticity already in s⁻¹
}

var rawLayout = layout{idx: [numColumns]int{0, 1, 2, 3, 4}}

// resolveHeader returns the layout of a header row, or false if the row is
// data rather than a header.
func resolveHeader(row []string) (layout, bool, error) {
	if len(row) > 0 {
		if _, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64); err == nil {
			return rawLayout, false, nil
		}
	}

	l := layout{}
	for i := range l.idx {
		l.idx[i] = -1
	}
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		c, ok := aliases[key]
		if !ok || l.idx[c] >= 0 {
			continue
		}
		l.idx[c] = i
		if c == colVorticity && key == "zeta" {
			l.zeta = true
		}
	}
	for c, i := range l.idx {
		if i < 0 {
			return layout{}, true, fmt.Errorf("%w: %s", ErrMissingColumn, columnNames[c])
		}
	}
	return l, true, nil
}

// ParseTime parses a date column value.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func (l layout) parse(row []string) (domain.Observation, error) {
	field := func(c column) (string, error) {
		i := l.idx[c]
		if i >= len(row) {
			return "", fmt.Errorf("%w: no %s field", ErrBadRow, columnNames[c])
		}
		return strings.TrimSpace(row[i]), nil
	}
	num := func(c column) (float64, error) {
		s, err := field(c)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q", ErrBadRow, columnNames[c], s)
		}
		return v, nil
	}

	var o domain.Observation
	s, err := field(colTrackID)
	if err != nil {
		return o, err
	}
	if o.TrackID, err = strconv.ParseInt(s, 10, 64); err != nil {
		return o, fmt.Errorf("%w: track_id %q", ErrBadRow, s)
	}
	if s, err = field(colDate); err != nil {
		return o, err
	}
	if o.Time, err = ParseTime(s); err != nil {
		return o, fmt.Errorf("%w: %w", ErrBadRow, err)
	}
	if o.Lat, err = num(colLat); err != nil {
		return o, err
	}
	lon, err := num(colLon)
	if err != nil {
		return o, err
	}
	o.Lon = domain.NormalizeLongitude(lon)
	vor, err := num(colVorticity)
	if err != nil {
		return o, err
	}
	if l.zeta {
		o.Vorticity = vor
	} else {
		o.Vorticity = domain.VorticityFromVor42(vor)
	}
	return o, nil
}

// Parse reads observations from r. name labels errors.
func Parse(r io.Reader, name string) ([]domain.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: read csv: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	l, header, err := resolveHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if header {
		rows = rows[1:]
	}

	obs := make([]domain.Observation, 0, len(rows))
	for i, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		o, err := l.parse(row)
		if err != nil {
			line := i + 1
			if header {
				line++
			}
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// ReadFile parses one track file.
func ReadFile(path string) ([]domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tracks: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// DirResult is the outcome of reading a directory of track files.
type DirResult struct {
	Tracks  []domain.Track
	Files   int
	Skipped []error
}

// ReadDir reads every *.csv file in dir concurrently and groups the
// observations into tracks. Unreadable files and invalid tracks are logged
// and reported in Skipped; a missing or empty directory is an error.
func ReadDir(ctx context.Context, dir string, workers int, logger *slog.Logger) (DirResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return DirResult{}, fmt.Errorf("read tracks: %w", err)
	}
	if len(paths) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return DirResult{}, fmt.Errorf("read tracks: %w", statErr)
		}
		return DirResult{}, fmt.Errorf("read tracks: no csv files in %s", dir)
	}
	slices.Sort(paths)

	var (
		mu      sync.Mutex
		all     []domain.Observation
		skipped []error
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
			obs, err := ReadFile(p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("skipping track file", "file", p, "error", err)
				skipped = append(skipped, err)
				return nil
			}
			all = append(all, obs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DirResult{}, err
	}

	tracks, bad := domain.GroupTracks(all)
	for _, err := range bad {
		logger.Warn("skipping track", "error", err)
	}
	return DirResult{
		Tracks:  tracks,
		Files:   len(paths),
		Skipped: append(skipped, bad...),
	}, nil
}
