package netcdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/cyclone-climatology/internal/density"
)

// DirWriter writes each dataset to <dir>/<name>.nc.
type DirWriter struct {
	dir string
}

// NewDirWriter creates dir if needed.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirWriter{dir: dir}, nil
}

// Path returns the output path of a dataset.
func (w *DirWriter) Path(ds *density.Dataset) string {
	return filepath.Join(w.dir, FileName(ds))
}

// LoadDataset writes ds, replacing any existing file.
func (w *DirWriter) LoadDataset(ctx context.Context, ds *density.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := w.Path(ds)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := Write(f, ds); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return f.Close()
}
