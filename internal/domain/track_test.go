package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC)

func obsAt(h int, lat, lon, zeta float64) Observation {
	return Observation{Time: t0.Add(time.Duration(h) * time.Hour), Lat: lat, Lon: lon, Vorticity: zeta}
}

func TestNewTrack(t *testing.T) {
	t.Run("sorts by time and stamps id", func(t *testing.T) {
		tr, err := NewTrack(7, []Observation{
			obsAt(2, -30, -40, -3e-5),
			obsAt(0, -29, -41, -1e-5),
			obsAt(1, -29.5, -40.5, -2e-5),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(7), tr.ID)
		assert.Equal(t, []time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)}, tr.Times())
		for _, o := range tr.Observations {
			assert.Equal(t, int64(7), o.TrackID)
		}
		assert.Equal(t, -29.0, tr.First().Lat)
		assert.Equal(t, t0.Add(2*time.Hour), tr.End())
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewTrack(1, nil)
		assert.ErrorIs(t, err, ErrEmptyTrack)
	})

	t.Run("duplicate time", func(t *testing.T) {
		_, err := NewTrack(1, []Observation{obsAt(0, 0, 0, 0), obsAt(0, 1, 1, 0)})
		assert.ErrorIs(t, err, ErrDuplicateTime)
	})
}

func TestGroupTracks(t *testing.T) {
	a := obsAt(0, -30, -40, -1e-5)
	a.TrackID = 2
	b := obsAt(1, -30, -40, -1e-5)
	b.TrackID = 1
	dup1 := obsAt(0, -30, -40, 0)
	dup1.TrackID = 3
	dup2 := dup1

	tracks, skipped := GroupTracks([]Observation{a, b, dup1, dup2})

	require.Len(t, tracks, 2)
	assert.Equal(t, int64(1), tracks[0].ID)
	assert.Equal(t, int64(2), tracks[1].ID)
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], ErrDuplicateTime)
}

func TestTrackPeakIntensity(t *testing.T) {
	tr, err := NewTrack(1, []Observation{
		obsAt(0, -30, -40, -1e-5),
		obsAt(1, -31, -39, -4e-5),
		obsAt(2, -32, -38, -4e-5),
		obsAt(3, -33, -37, -2e-5),
	})
	require.NoError(t, err)

	peak := tr.PeakIntensity()
	assert.Equal(t, t0.Add(time.Hour), peak.Time)
	assert.Equal(t, -4e-5, peak.Vorticity)
}

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{-180, -180},
		{180, -180},
		{320, -40},
		{359.5, -0.5},
		{-190, 170},
		{540, -180},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, NormalizeLongitude(tc.in), 1e-12, "lon %v", tc.in)
	}
}

func TestVorticityConversion(t *testing.T) {
	zeta := VorticityFromVor42(4.5)
	assert.InDelta(t, -4.5e-5, zeta, 1e-18)
	assert.InDelta(t, 4.5, Vor42FromVorticity(zeta), 1e-12)
}
