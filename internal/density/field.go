package density

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrGridMismatch is returned when combining fields on different grids.
var ErrGridMismatch = errors.New("fields are on different grids")

// Field is a density grid. Values has one row per latitude and one column
// per longitude.
type Field struct {
	Name      string
	Lats      []float64
	Lons      []float64
	Values    *mat.Dense
	Count     int
	TimeUnits int
}

// Shape returns (rows, cols) of Values.
func (f *Field) Shape() (int, int) {
	return f.Values.Dims()
}

// At returns the value at row i, column j.
func (f *Field) At(i, j int) float64 {
	return f.Values.At(i, j)
}

// Data returns the values in row-major order. The slice aliases the field.
func (f *Field) Data() []float64 {
	return f.Values.RawMatrix().Data
}

// Max returns the largest value and its row and column.
func (f *Field) Max() (float64, int, int) {
	data := f.Data()
	idx := floats.MaxIdx(data)
	_, cols := f.Shape()
	return data[idx], idx / cols, idx % cols
}

// Integrate sums value × cell area over the grid and multiplies back by the
// time units, which approximately recovers the observation count. The last
// longitude column duplicates the first and is skipped.
func (f *Field) Integrate(earthRadiusKm float64) float64 {
	rows, cols := f.Shape()
	if rows < 2 || cols < 2 {
		return 0
	}
	dLat := toRadians(f.Lats[1] - f.Lats[0])
	dLon := toRadians(f.Lons[1] - f.Lons[0])
	r2 := earthRadiusKm * earthRadiusKm

	var total float64
	for i := 0; i < rows; i++ {
		area := r2 * math.Cos(toRadians(f.Lats[i])) * dLat * dLon / 1e6
		for j := 0; j < cols-1; j++ {
			total += f.Values.At(i, j) * area
		}
	}
	return total * float64(f.TimeUnits)
}

func sameGrid(a, b *Field) bool {
	return floats.Equal(a.Lats, b.Lats) && floats.Equal(a.Lons, b.Lons)
}

// Sum adds fields on the same grid. Counts add; time units are taken from
// the first field.
func Sum(name string, fields ...*Field) (*Field, error) {
	if len(fields) == 0 {
		return nil, ErrNoObservations
	}
	first := fields[0]
	out := &Field{
		Name:      name,
		Lats:      append([]float64(nil), first.Lats...),
		Lons:      append([]float64(nil), first.Lons...),
		Values:    mat.DenseCopyOf(first.Values),
		Count:     first.Count,
		TimeUnits: first.TimeUnits,
	}
	for _, f := range fields[1:] {
		if !sameGrid(first, f) {
			return nil, fmt.Errorf("sum %q with %q: %w", first.Name, f.Name, ErrGridMismatch)
		}
		out.Values.Add(out.Values, f.Values)
		out.Count += f.Count
	}
	return out, nil
}

// Normalize rescales values to [0, 1] by min-max. A constant field maps to 0.
func Normalize(f *Field) *Field {
	data := f.Data()
	lo, hi := floats.Min(data), floats.Max(data)
	span := hi - lo

	out := &Field{
		Name:      f.Name,
		Lats:      append([]float64(nil), f.Lats...),
		Lons:      append([]float64(nil), f.Lons...),
		Values:    mat.NewDense(f.Values.RawMatrix().Rows, f.Values.RawMatrix().Cols, nil),
		Count:     f.Count,
		TimeUnits: f.TimeUnits,
	}
	out.Values.Apply(func(_, _ int, v float64) float64 {
		if span == 0 {
			return 0
		}
		return (v - lo) / span
	}, f.Values)
	return out
}

// Difference returns Normalize(b) - Normalize(a), the change from a to b.
func Difference(name string, a, b *Field) (*Field, error) {
	if !sameGrid(a, b) {
		return nil, fmt.Errorf("difference %q to %q: %w", a.Name, b.Name, ErrGridMismatch)
	}
	na, nb := Normalize(a), Normalize(b)
	nb.Values.Sub(nb.Values, na.Values)
	nb.Name = name
	return nb, nil
}
