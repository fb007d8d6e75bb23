// Package periodcsv reads and writes per-track phase period files.
//
// Each file holds the periods of one track:
//
//	period,start,end
//	intensification,1990-06-01 00:00:00,1990-06-01 18:00:00
//	mature,1990-06-02 00:00:00,1990-06-02 06:00:00
//
// and is named <prefix>_<track_id>.csv.
package periodcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// TimeLayout formats period boundaries.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"period", "start", "end"}

// ErrBadFileName is returned when a file name has no numeric track id suffix.
var ErrBadFileName = errors.New("file name has no track id")

// FileName returns the file name for a track's periods.
func FileName(prefix string, trackID int64) string {
	return fmt.Sprintf("%s_%d.csv", prefix, trackID)
}

// TrackIDFromFileName parses the track id from the last underscore-separated
// token of a period file name.
func TrackIDFromFileName(name string) (int64, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(base, "_")
	id, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	return id, nil
}

// Write writes periods as CSV.
func Write(w io.Writer, ps domain.Periods) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, iv := range ps {
		if err := cw.Write([]string{string(iv.Phase), iv.Start.UTC().Format(TimeLayout), iv.End.UTC().Format(TimeLayout)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Parse reads periods written by Write.
func Parse(r io.Reader) (domain.Periods, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read periods: empty file")
	}

	var ps domain.Periods
	for i, row := range rows[1:] {
		if len(row) != 3 {
			return nil, fmt.Errorf("read periods line %d: want 3 fields, got %d", i+2, len(row))
		}
		start, err := time.ParseInLocation(TimeLayout, row[1], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("read periods line %d: %w", i+2, err)
		}
		end, err := time.ParseInLocation(TimeLayout, row[2], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("read periods line %d: %w", i+2, err)
		}
		ps = append(ps, domain.Interval{Phase: domain.Phase(row[0]), Start: start, End: end})
	}
	if err := ps.Validate(); err != nil {
		return nil, fmt.Errorf("read periods: %w", err)
	}
	return ps, nil
}

// ReadFile reads one period file and takes the track id from its name.
func ReadFile(path string) (domain.TrackPeriods, error) {
	id, err := TrackIDFromFileName(path)
	if err != nil {
		return domain.TrackPeriods{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.TrackPeriods{}, fmt.Errorf("open periods: %w", err)
	}
	defer f.Close()

	ps, err := Parse(f)
	if err != nil {
		return domain.TrackPeriods{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return domain.TrackPeriods{TrackID: id, Periods: ps}, nil
}

// DirWriter writes one period file per track into a directory.
type DirWriter struct {
	dir    string
	prefix string
}

// NewDirWriter creates dir if needed.
func NewDirWriter(dir, prefix string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create periods dir: %w", err)
	}
	return &DirWriter{dir: dir, prefix: prefix}, nil
}

// Path returns the file path for a track.
func (w *DirWriter) Path(trackID int64) string {
	return filepath.Join(w.dir, FileName(w.prefix, trackID))
}

// LoadBatch writes each track's periods to its own file.
func (w *DirWriter) LoadBatch(ctx context.Context, batch []domain.TrackPeriods) error {
	for _, tp := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.write(tp); err != nil {
			return err
		}
	}
	return nil
}

func (w *DirWriter) write(tp domain.TrackPeriods) error {
	path := w.Path(tp.TrackID)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write periods: %w", err)
	}
	if err := Write(f, tp.Periods); err != nil {
		f.Close()
		return fmt.Errorf("write periods %s: %w", path, err)
	}
	return f.Close()
}

// Close implements the loader interface; files are closed per write.
func (w *DirWriter) Close() error { return nil }
