// Package density estimates cyclone occurrence density on a global grid
// with a Gaussian kernel over great-circle distance.
//
// Values are occurrences per 10⁶ km² per time unit:
//
//	density(x) = Σᵢ exp(-θ(x,xᵢ)² / 2h²) / (2πh²) × 1e6 / R² / T
//
// which is N times the normalised spherical KDE, converted from per
// steradian to per 10⁶ km² and divided by the number of time units T.
package density

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

var (
	// ErrNoObservations is returned for an empty input set.
	ErrNoObservations = errors.New("no observations")

	// ErrInvalidTimeUnits is returned when the time-unit count is not positive.
	ErrInvalidTimeUnits = errors.New("time units must be positive")

	// ErrInvalidLatitude is returned for a point outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude out of range")
)

// Estimator computes density fields on a fixed grid. It holds no mutable
// state and is safe for concurrent use.
type Estimator struct {
	params Params
	grid   Grid
}

// NewEstimator validates p and precomputes the grid.
func NewEstimator(p Params) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{params: p, grid: NewGrid(p)}, nil
}

// Params returns the estimator parameters.
func (e *Estimator) Params() Params { return e.params }

// Grid returns the evaluation grid.
func (e *Estimator) Grid() Grid { return e.grid }

// ComputeSubset computes the density of a named subset.
func (e *Estimator) ComputeSubset(s domain.Subset, timeUnits int) (*Field, error) {
	f, err := e.Compute(s.Points, timeUnits)
	if err != nil {
		return nil, fmt.Errorf("subset %q: %w", s.Name, err)
	}
	f.Name = s.Name
	return f, nil
}

// Compute evaluates the density of points on the grid, normalised by
// timeUnits.
func (e *Estimator) Compute(points []domain.LatLon, timeUnits int) (*Field, error) {
	if len(points) == 0 {
		return nil, ErrNoObservations
	}
	if timeUnits <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTimeUnits, timeUnits)
	}

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLatitude, p.Lat)
		}
		lats[i] = toRadians(p.Lat)
		lons[i] = toRadians(p.Lon)
	}

	var kernelSum func(lat, lon float64, buf []float64) []float64
	if e.params.CutoffBandwidths > 0 {
		kernelSum = e.treeKernels(lats, lons)
	} else {
		kernelSum = e.exactKernels(lats, lons)
	}

	h := e.params.Bandwidth
	norm := 2 * math.Pi * h * h
	r := e.params.EarthRadiusKm
	scale := 1e6 / (r * r)
	rows, cols := e.grid.Shape()
	values := mat.NewDense(rows, cols, nil)

	var buf []float64
	for i, glat := range e.grid.Lats {
		for j, glon := range e.grid.Lons {
			buf = kernelSum(toRadians(glat), toRadians(glon), buf[:0])
			sort.Float64s(buf)
			var sum float64
			for _, k := range buf {
				sum += k
			}
			values.Set(i, j, sum/norm*scale/float64(timeUnits))
		}
	}

	return &Field{
		Lats:      append([]float64(nil), e.grid.Lats...),
		Lons:      append([]float64(nil), e.grid.Lons...),
		Values:    values,
		Count:     len(points),
		TimeUnits: timeUnits,
	}, nil
}

func (e *Estimator) kernel(theta float64) float64 {
	h := e.params.Bandwidth
	return math.Exp(-theta * theta / (2 * h * h))
}

// exactKernels sums the kernel over every observation.
func (e *Estimator) exactKernels(lats, lons []float64) func(float64, float64, []float64) []float64 {
	return func(lat, lon float64, buf []float64) []float64 {
		for i := range lats {
			buf = append(buf, e.kernel(haversine(lat, lon, lats[i], lons[i])))
		}
		return buf
	}
}

// treeKernels sums the kernel over observations within the cutoff radius,
// found through a k-d tree over unit vectors. Squared chord length is
// monotonic in great-circle angle, so the angular cutoff maps to a
// Euclidean one.
func (e *Estimator) treeKernels(lats, lons []float64) func(float64, float64, []float64) []float64 {
	pts := make(kdtree.Points, len(lats))
	for i := range lats {
		v := unitVector(lats[i], lons[i])
		pts[i] = kdtree.Point{v[0], v[1], v[2]}
	}
	tree := kdtree.New(pts, false)

	cutoff := math.Min(math.Pi, e.params.CutoffBandwidths*e.params.Bandwidth)
	chord := 2 * math.Sin(cutoff/2)
	maxSq := chord * chord

	return func(lat, lon float64, buf []float64) []float64 {
		v := unitVector(lat, lon)
		keep := kdtree.NewDistKeeper(maxSq)
		tree.NearestSet(keep, kdtree.Point{v[0], v[1], v[2]})
		for _, c := range keep.Heap {
			if c.Comparable == nil {
				continue
			}
			buf = append(buf, e.kernel(chordAngle(c.Dist)))
		}
		return buf
	}
}
