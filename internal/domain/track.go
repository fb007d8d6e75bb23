package domain

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"
)

var (
	// ErrEmptyTrack is returned when a track has no observations.
	ErrEmptyTrack = errors.New("track has no observations")

	// ErrDuplicateTime is returned when two observations of one track share a timestamp.
	ErrDuplicateTime = errors.New("duplicate observation time")
)

// Observation is one cyclone-centre position.
type Observation struct {
	TrackID   int64     `json:"track_id"`
	Time      time.Time `json:"date"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Vorticity float64   `json:"zeta"` // s⁻¹, negative for SH cyclones
}

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position returns the observation's position.
func (o Observation) Position() LatLon {
	return LatLon{Lat: o.Lat, Lon: o.Lon}
}

// Track is the time-ordered sequence of observations of one cyclone.
type Track struct {
	ID           int64
	Observations []Observation
}

// NewTrack copies obs, sorts it by time and stamps every observation with id.
func NewTrack(id int64, obs []Observation) (Track, error) {
	if len(obs) == 0 {
		return Track{}, fmt.Errorf("track %d: %w", id, ErrEmptyTrack)
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	for i := range sorted {
		sorted[i].TrackID = id
		if i > 0 && sorted[i].Time.Equal(sorted[i-1].Time) {
			return Track{}, fmt.Errorf("track %d at %s: %w", id, sorted[i].Time.Format(time.RFC3339), ErrDuplicateTime)
		}
	}

	return Track{ID: id, Observations: sorted}, nil
}

// GroupTracks splits a flat list of observations into tracks ordered by ID.
// Tracks that cannot be built are reported in skipped and left out.
func GroupTracks(obs []Observation) (tracks []Track, skipped []error) {
	byID := make(map[int64][]Observation)
	for _, o := range obs {
		byID[o.TrackID] = append(byID[o.TrackID], o)
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	tracks = make([]Track, 0, len(ids))
	for _, id := range ids {
		t, err := NewTrack(id, byID[id])
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, skipped
}

// Len returns the number of observations.
func (t Track) Len() int { return len(t.Observations) }

// First returns the genesis observation.
func (t Track) First() Observation { return t.Observations[0] }

// Start returns the time of the first observation.
func (t Track) Start() time.Time { return t.Observations[0].Time }

// End returns the time of the last observation.
func (t Track) End() time.Time { return t.Observations[len(t.Observations)-1].Time }

// Times returns the observation timestamps in order.
func (t Track) Times() []time.Time {
	out := make([]time.Time, len(t.Observations))
	for i, o := range t.Observations {
		out[i] = o.Time
	}
	return out
}

// Vorticity returns the vorticity series in order.
func (t Track) Vorticity() []float64 {
	out := make([]float64, len(t.Observations))
	for i, o := range t.Observations {
		out[i] = o.Vorticity
	}
	return out
}

// Positions returns every position of the track.
func (t Track) Positions() []LatLon {
	out := make([]LatLon, len(t.Observations))
	for i, o := range t.Observations {
		out[i] = o.Position()
	}
	return out
}

// PeakIntensity returns the observation with the most cyclonic (minimum)
// vorticity. Ties resolve to the earliest.
func (t Track) PeakIntensity() Observation {
	best := t.Observations[0]
	for _, o := range t.Observations[1:] {
		if o.Vorticity < best.Vorticity {
			best = o
		}
	}
	return best
}
