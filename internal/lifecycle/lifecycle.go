// Package lifecycle summarises segmented tracks: how often each phase
// configuration occurs and how long each phase lasts.
package lifecycle

import (
	"slices"
	"sort"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Configuration counts tracks sharing one ordered phase sequence.
type Configuration struct {
	Name         string  `json:"configuration"`
	Abbreviation string  `json:"abbreviation"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`
	TrackIDs     []int64 `json:"track_ids"`
}

// CountConfigurations groups tracks by phase sequence, most frequent first.
// Ties are ordered by abbreviation.
func CountConfigurations(tracks []domain.TrackPeriods) []Configuration {
	byName := make(map[string]*Configuration)
	for _, tp := range tracks {
		if len(tp.Periods) == 0 {
			continue
		}
		name := tp.Periods.LifeCycle()
		c, ok := byName[name]
		if !ok {
			c = &Configuration{Name: name, Abbreviation: tp.Periods.Abbreviated()}
			byName[name] = c
		}
		c.Count++
		c.TrackIDs = append(c.TrackIDs, tp.TrackID)
	}

	var total int
	out := make([]Configuration, 0, len(byName))
	for _, c := range byName {
		total += c.Count
		slices.Sort(c.TrackIDs)
		out = append(out, *c)
	}
	for i := range out {
		out[i].Percentage = 100 * float64(out[i].Count) / float64(total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Abbreviation < out[j].Abbreviation
	})
	return out
}

// CountBySeason counts configurations separately for each season, using the
// season in which the system's first phase starts.
func CountBySeason(tracks []domain.TrackPeriods) map[domain.Season][]Configuration {
	bySeason := make(map[domain.Season][]domain.TrackPeriods)
	for _, tp := range tracks {
		if len(tp.Periods) == 0 {
			continue
		}
		s := domain.SeasonOf(tp.Periods[0].Start)
		bySeason[s] = append(bySeason[s], tp)
	}

	out := make(map[domain.Season][]Configuration, len(bySeason))
	for s, tps := range bySeason {
		out[s] = CountConfigurations(tps)
	}
	return out
}

// DurationStats summarises the durations of one phase in hours.
type DurationStats struct {
	Phase  domain.Phase `json:"phase"`
	N      int          `json:"n"`
	Mean   float64      `json:"mean_hours"`
	StdDev float64      `json:"std_hours"`
	Median float64      `json:"median_hours"`
	P10    float64      `json:"p10_hours"`
	P90    float64      `json:"p90_hours"`
}

// PhaseDurations returns duration statistics for every phase that occurs,
// in canonical phase order.
func PhaseDurations(tracks []domain.TrackPeriods) []DurationStats {
	hours := make(map[domain.Phase][]float64)
	for _, tp := range tracks {
		for _, iv := range tp.Periods {
			hours[iv.Phase] = append(hours[iv.Phase], iv.Duration().Hours())
		}
	}

	var out []DurationStats
	for _, p := range domain.PhaseOrder() {
		h := hours[p]
		if len(h) == 0 {
			continue
		}
		ds := DurationStats{Phase: p, N: len(h), Mean: stat.Mean(h, nil)}
		if len(h) > 1 {
			ds.StdDev = stat.StdDev(h, nil)
		}
		ds.Median, _ = stats.Median(h)
		sorted := slices.Clone(h)
		sort.Float64s(sorted)
		ds.P10 = quantile(sorted, 0.1)
		ds.P90 = quantile(sorted, 0.9)
		out = append(out, ds)
	}
	return out
}

// quantile interpolates linearly between the order statistics of sorted,
// the same definition pandas uses by default.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Report bundles the life-cycle summaries of a set of tracks.
type Report struct {
	Tracks         int
	Configurations []Configuration
	BySeason       map[domain.Season][]Configuration
	Durations      []DurationStats
}

// NewReport summarises tracks.
func NewReport(tracks []domain.TrackPeriods) Report {
	return Report{
		Tracks:         len(tracks),
		Configurations: CountConfigurations(tracks),
		BySeason:       CountBySeason(tracks),
		Durations:      PhaseDurations(tracks),
	}
}
