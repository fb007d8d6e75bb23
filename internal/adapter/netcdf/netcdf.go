// Package netcdf writes and reads density datasets as classic-format NetCDF
// files: dimensions lat and lon, coordinate variables of the same names, and
// one float64 variable per density field.
package netcdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

const (
	dimLat = "lat"
	dimLon = "lon"
)

// ErrBadDataset is returned when a file lacks the expected layout.
var ErrBadDataset = errors.New("not a density dataset")

var invalidChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// VariableName sanitises a subset name into a NetCDF variable name.
func VariableName(name string) string {
	v := invalidChars.ReplaceAllString(name, "_")
	if v == "" || (v[0] >= '0' && v[0] <= '9') {
		v = "v_" + v
	}
	if v == dimLat || v == dimLon {
		v += "_density"
	}
	return v
}

// Write encodes ds into w.
func Write(w cdf.ReaderWriterAt, ds *density.Dataset) error {
	if err := ds.Check(); err != nil {
		return err
	}
	first := ds.Fields[0]
	rows, cols := first.Shape()

	h := cdf.NewHeader([]string{dimLat, dimLon}, []int{rows, cols})
	h.AddAttribute("", "title", ds.Title)
	h.AddAttribute("", "time_units", []int32{int32(first.TimeUnits)})
	h.AddAttribute("", "run_id", ds.RunID)
	h.AddAttribute("", "history", "created "+domain.Now().Format("2006-01-02T15:04:05Z"))

	h.AddVariable(dimLat, []string{dimLat}, []float64{0})
	h.AddAttribute(dimLat, "units", "degrees_north")
	h.AddVariable(dimLon, []string{dimLon}, []float64{0})
	h.AddAttribute(dimLon, "units", "degrees_east")

	names := make([]string, len(ds.Fields))
	for i, f := range ds.Fields {
		names[i] = VariableName(f.Name)
		if slices.Contains(names[:i], names[i]) {
			return fmt.Errorf("dataset %q: fields %q collide as variable %s", ds.Name, f.Name, names[i])
		}
		h.AddVariable(names[i], []string{dimLat, dimLon}, []float64{0})
		h.AddAttribute(names[i], "long_name", f.Name)
		h.AddAttribute(names[i], "units", density.Units)
		h.AddAttribute(names[i], "count", []int32{int32(f.Count)})
	}
	h.Define()

	cf, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("create netcdf: %w", err)
	}
	if err := writeVar(cf, dimLat, first.Lats); err != nil {
		return err
	}
	if err := writeVar(cf, dimLon, first.Lons); err != nil {
		return err
	}
	for i, f := range ds.Fields {
		if err := writeVar(cf, names[i], f.Data()); err != nil {
			return err
		}
	}
	return nil
}

func writeVar(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := f.Writer(name, start, end).Write(data); err != nil {
		return fmt.Errorf("write variable %s: %w", name, err)
	}
	return nil
}

func readVar(f *cdf.File, name string) ([]float64, error) {
	n := 1
	for _, l := range f.Header.Lengths(name) {
		n *= l
	}
	buf := make([]float64, n)
	if _, err := f.Reader(name, nil, nil).Read(buf); err != nil {
		return nil, fmt.Errorf("read variable %s: %w", name, err)
	}
	return buf, nil
}

func stringAttr(h *cdf.Header, v, name string) string {
	s, _ := h.GetAttribute(v, name).(string)
	return s
}

func intAttr(h *cdf.Header, v, name string) int {
	if xs, ok := h.GetAttribute(v, name).([]int32); ok && len(xs) > 0 {
		return int(xs[0])
	}
	return 0
}

// Read decodes a dataset written by Write. Field names come from the
// long_name attribute.
func Read(r cdf.ReaderWriterAt) (*density.Dataset, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open netcdf: %w", err)
	}
	h := f.Header

	lats, err := readVar(f, dimLat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDataset, err)
	}
	lons, err := readVar(f, dimLon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDataset, err)
	}

	ds := &density.Dataset{
		Title: stringAttr(h, "", "title"),
		RunID: stringAttr(h, "", "run_id"),
	}
	timeUnits := intAttr(h, "", "time_units")

	for _, v := range h.Variables() {
		if v == dimLat || v == dimLon {
			continue
		}
		dims := h.Dimensions(v)
		if len(dims) != 2 || dims[0] != dimLat || dims[1] != dimLon {
			return nil, fmt.Errorf("%w: variable %s has dimensions %v", ErrBadDataset, v, dims)
		}
		data, err := readVar(f, v)
		if err != nil {
			return nil, err
		}
		name := stringAttr(h, v, "long_name")
		if name == "" {
			name = v
		}
		ds.Fields = append(ds.Fields, &density.Field{
			Name:      name,
			Lats:      lats,
			Lons:      lons,
			Values:    mat.NewDense(len(lats), len(lons), data),
			Count:     intAttr(h, v, "count"),
			TimeUnits: timeUnits,
		})
	}
	if len(ds.Fields) == 0 {
		return nil, fmt.Errorf("%w: no density variables", ErrBadDataset)
	}
	return ds, nil
}

// ReadFile reads the dataset at path; its name is the file name without
// extension.
func ReadFile(path string) (*density.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	ds.Name = trimExt(filepath.Base(path))
	return ds, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// FileName returns the file name of a dataset.
func FileName(ds *density.Dataset) string {
	return ds.Name + ".nc"
}
