package density

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default grid and kernel constants.
const (
	DefaultK                = 64
	DefaultLatLimit         = 87.863
	DefaultBandwidth        = 0.05 // radians
	DefaultEarthRadiusKm    = 6369.345
	DefaultCutoffBandwidths = 8
)

// Params configures the estimator grid and kernel.
type Params struct {
	// K is the number of latitude rows; the grid has 2K longitude columns.
	K int
	// LatLimit bounds the latitude axis to [-LatLimit, LatLimit] degrees.
	LatLimit float64
	// Bandwidth is the Gaussian kernel width in radians of arc.
	Bandwidth float64
	// EarthRadiusKm converts steradians to km².
	EarthRadiusKm float64
	// CutoffBandwidths limits neighbour search to this many bandwidths.
	// Zero sums every observation at every node.
	CutoffBandwidths float64
}

// DefaultParams returns the climatology defaults.
func DefaultParams() Params {
	return Params{
		K:                DefaultK,
		LatLimit:         DefaultLatLimit,
		Bandwidth:        DefaultBandwidth,
		EarthRadiusKm:    DefaultEarthRadiusKm,
		CutoffBandwidths: DefaultCutoffBandwidths,
	}
}

// ErrInvalidParams is returned for unusable estimator parameters.
var ErrInvalidParams = errors.New("invalid density parameters")

// Validate checks the parameters.
func (p Params) Validate() error {
	switch {
	case p.K < 2:
		return fmt.Errorf("%w: K must be at least 2, got %d", ErrInvalidParams, p.K)
	case p.LatLimit <= 0 || p.LatLimit > 90:
		return fmt.Errorf("%w: lat limit %v outside (0, 90]", ErrInvalidParams, p.LatLimit)
	case p.Bandwidth <= 0 || math.IsNaN(p.Bandwidth):
		return fmt.Errorf("%w: bandwidth must be positive, got %v", ErrInvalidParams, p.Bandwidth)
	case p.EarthRadiusKm <= 0:
		return fmt.Errorf("%w: earth radius must be positive, got %v", ErrInvalidParams, p.EarthRadiusKm)
	case p.CutoffBandwidths < 0:
		return fmt.Errorf("%w: cutoff must not be negative, got %v", ErrInvalidParams, p.CutoffBandwidths)
	}
	return nil
}

// Grid holds the evaluation axes in degrees.
type Grid struct {
	Lats []float64
	Lons []float64
}

// NewGrid builds K latitudes over [-LatLimit, LatLimit] and 2K longitudes
// over [-180, 180].
func NewGrid(p Params) Grid {
	return Grid{
		Lats: floats.Span(make([]float64, p.K), -p.LatLimit, p.LatLimit),
		Lons: floats.Span(make([]float64, 2*p.K), -180, 180),
	}
}

// Shape returns (rows, cols).
func (g Grid) Shape() (int, int) {
	return len(g.Lats), len(g.Lons)
}

// Nearest returns the row and column of the node closest in degrees to
// (lat, lon).
func (g Grid) Nearest(lat, lon float64) (int, int) {
	return nearestIndex(g.Lats, lat), nearestIndex(g.Lons, lon)
}

func nearestIndex(axis []float64, v float64) int {
	best := 0
	for i, a := range axis {
		if math.Abs(a-v) < math.Abs(axis[best]-v) {
			best = i
		}
	}
	return best
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// unitVector maps a lat/lon in radians onto the unit sphere.
func unitVector(lat, lon float64) [3]float64 {
	cl := math.Cos(lat)
	return [3]float64{cl * math.Cos(lon), cl * math.Sin(lon), math.Sin(lat)}
}

// haversine returns the great-circle angle between two points in radians.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sdLat := math.Sin((lat2 - lat1) / 2)
	sdLon := math.Sin((lon2 - lon1) / 2)
	a := sdLat*sdLat + math.Cos(lat1)*math.Cos(lat2)*sdLon*sdLon
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}

// chordAngle converts a squared chord length on the unit sphere to the
// great-circle angle.
func chordAngle(sq float64) float64 {
	return 2 * math.Asin(math.Min(1, math.Sqrt(sq)/2))
}
