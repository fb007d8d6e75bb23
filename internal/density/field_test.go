package density

import (
	"testing"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func smallField(name string, values []float64) *Field {
	return &Field{
		Name:      name,
		Lats:      []float64{-10, 10},
		Lons:      []float64{-180, 0, 180},
		Values:    mat.NewDense(2, 3, values),
		Count:     1,
		TimeUnits: 1,
	}
}

func TestSum(t *testing.T) {
	a := smallField("a", []float64{1, 2, 3, 4, 5, 6})
	b := smallField("b", []float64{6, 5, 4, 3, 2, 1})

	s, err := Sum("total", a, b)
	require.NoError(t, err)
	assert.Equal(t, "total", s.Name)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, []float64{7, 7, 7, 7, 7, 7}, s.Data())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, a.Data(), "inputs are not modified")

	other := smallField("c", []float64{0, 0, 0, 0, 0, 0})
	other.Lats = []float64{-20, 20}
	_, err = Sum("bad", a, other)
	assert.ErrorIs(t, err, ErrGridMismatch)

	_, err = Sum("empty")
	assert.Error(t, err)
}

func TestNormalizeAndDifference(t *testing.T) {
	a := smallField("a", []float64{0, 2, 4, 6, 8, 10})
	n := Normalize(a)
	assert.Equal(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}, n.Data())

	flat := Normalize(smallField("flat", []float64{3, 3, 3, 3, 3, 3}))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, flat.Data())

	b := smallField("b", []float64{10, 8, 6, 4, 2, 0})
	d, err := Difference("b-a", a, b)
	require.NoError(t, err)
	assert.Equal(t, "b-a", d.Name)
	assert.True(t, floats.EqualApprox([]float64{1, 0.6, 0.2, -0.2, -0.6, -1}, d.Data(), 1e-12))
}

func TestRegionalSumIntegrates(t *testing.T) {
	e := newTestEstimator(t, DefaultParams())
	f1, err := e.Compute([]domain.LatLon{{Lat: -30, Lon: -45}}, 1)
	require.NoError(t, err)
	f2, err := e.Compute([]domain.LatLon{{Lat: -45, Lon: -60}, {Lat: -47, Lon: -62}}, 1)
	require.NoError(t, err)

	total, err := Sum("all", f1, f2)
	require.NoError(t, err)
	assert.Equal(t, 3, total.Count)
	assert.InEpsilon(t, 3.0, total.Integrate(DefaultEarthRadiusKm), 0.02)
}

func TestDataset(t *testing.T) {
	ds := &Dataset{Name: "x", Fields: []*Field{smallField("a", make([]float64, 6)), smallField("b", make([]float64, 6))}}
	require.NoError(t, ds.Check())
	f, ok := ds.Field("b")
	require.True(t, ok)
	assert.Equal(t, "b", f.Name)
	_, ok = ds.Field("z")
	assert.False(t, ok)

	assert.Error(t, (&Dataset{Name: "empty"}).Check())
}
