package density

import (
	"math"
	"testing"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(t *testing.T, p Params) *Estimator {
	t.Helper()
	e, err := NewEstimator(p)
	require.NoError(t, err)
	return e
}

func clusterPoints() []domain.LatLon {
	return []domain.LatLon{
		{Lat: -30, Lon: -40},
		{Lat: -31.5, Lon: -42},
		{Lat: -28, Lon: -45},
		{Lat: -35, Lon: -50},
		{Lat: -33, Lon: -38.5},
		{Lat: -29, Lon: -47},
	}
}

func TestEstimatorSinglePoint(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())

	f, err := e.Compute([]domain.LatLon{{Lat: -30, Lon: -40}}, 1)
	require.NoError(t, err)

	rows, cols := f.Shape()
	assert.Equal(t, 64, rows)
	assert.Equal(t, 128, cols)
	assert.Len(t, f.Lats, 64)
	assert.Len(t, f.Lons, 128)
	assert.InDelta(t, -87.863, f.Lats[0], 1e-9)
	assert.InDelta(t, 87.863, f.Lats[63], 1e-9)
	assert.Equal(t, -180.0, f.Lons[0])
	assert.Equal(t, 180.0, f.Lons[127])

	peak, i, j := f.Max()
	wantI, wantJ := e.Grid().Nearest(-30, -40)
	assert.Equal(t, 21, wantI)
	assert.Equal(t, 49, wantJ)
	assert.Equal(t, wantI, i)
	assert.Equal(t, wantJ, j)
	assert.Greater(t, peak, 0.0)

	// Far from the point the field is effectively zero.
	assert.Less(t, f.At(50, 10), peak*1e-12)
	for _, v := range f.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestEstimatorIntegratesToCount(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())
	pts := clusterPoints()

	f, err := e.Compute(pts, 1)
	require.NoError(t, err)
	assert.InEpsilon(t, float64(len(pts)), f.Integrate(DefaultEarthRadiusKm), 0.02)

	f3, err := e.Compute(pts, 3)
	require.NoError(t, err)
	assert.InEpsilon(t, float64(len(pts)), f3.Integrate(DefaultEarthRadiusKm), 0.02)
}

func TestEstimatorTimeUnitsHalving(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())
	pts := clusterPoints()

	one, err := e.Compute(pts, 1)
	require.NoError(t, err)
	two, err := e.Compute(pts, 2)
	require.NoError(t, err)

	a, b := one.Data(), two.Data()
	require.Len(t, b, len(a))
	for i := range a {
		if a[i]/2 != b[i] {
			t.Fatalf("value %d: %v / 2 != %v", i, a[i], b[i])
		}
	}
}

func TestEstimatorTreeMatchesExact(t *testing.T) {
	tree := newTestEstimator(t, DefaultParams())
	exactParams := DefaultParams()
	exactParams.CutoffBandwidths = 0
	exact := newTestEstimator(t, exactParams)

	pts := append(clusterPoints(), domain.LatLon{Lat: 10, Lon: 179.5}, domain.LatLon{Lat: 11, Lon: -179.5})

	ft, err := tree.Compute(pts, 4)
	require.NoError(t, err)
	fe, err := exact.Compute(pts, 4)
	require.NoError(t, err)

	peak, _, _ := fe.Max()
	for i, v := range fe.Data() {
		assert.InDelta(t, v, ft.Data()[i], peak*1e-9, "node %d", i)
	}
}

func TestEstimatorDeterministic(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())
	pts := clusterPoints()
	reversed := make([]domain.LatLon, len(pts))
	for i, p := range pts {
		reversed[len(pts)-1-i] = p
	}

	a, err := e.Compute(pts, 1)
	require.NoError(t, err)
	b, err := e.Compute(reversed, 1)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
}

func TestEstimatorErrors(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())

	_, err := e.Compute(nil, 1)
	assert.ErrorIs(t, err, ErrNoObservations)

	_, err = e.Compute(clusterPoints(), 0)
	assert.ErrorIs(t, err, ErrInvalidTimeUnits)

	_, err = e.Compute([]domain.LatLon{{Lat: 91, Lon: 0}}, 1)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	_, err = e.Compute([]domain.LatLon{{Lat: math.NaN(), Lon: 0}}, 1)
	assert.ErrorIs(t, err, ErrInvalidLatitude)

	_, err = e.ComputeSubset(domain.Subset{Name: "mature"}, 1)
	require.ErrorIs(t, err, ErrNoObservations)
	assert.Contains(t, err.Error(), "mature")
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())

	bad := p
	bad.K = 1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = p
	bad.Bandwidth = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = p
	bad.CutoffBandwidths = -1
	_, err := NewEstimator(bad)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCustomGrid(t *testing.T) {
	p := DefaultParams()
	p.K = 16
	e := newTestEstimator(t, p)

	f, err := e.ComputeSubset(domain.Subset{Name: "decay", Points: clusterPoints()}, 1)
	require.NoError(t, err)
	rows, cols := f.Shape()
	assert.Equal(t, 16, rows)
	assert.Equal(t, 32, cols)
	assert.Equal(t, "decay", f.Name)
	assert.Equal(t, 6, f.Count)
}
