package domain

// LabelledObservation is an observation tagged with the phase containing it.
// Phase is empty when no interval covers the observation.
type LabelledObservation struct {
	Observation
	Phase Phase `json:"period,omitempty"`
}

// LabelObservations tags each observation of t with its phase.
func LabelObservations(t Track, ps Periods) []LabelledObservation {
	out := make([]LabelledObservation, len(t.Observations))
	for i, o := range t.Observations {
		p, _ := ps.Label(o.Time)
		out[i] = LabelledObservation{Observation: o, Phase: p}
	}
	return out
}

// Subset is a named group of density input points.
type Subset struct {
	Name   string
	Points []LatLon
}

// FilterSeason keeps labelled observations whose month falls in s.
func FilterSeason(obs []LabelledObservation, s Season) []LabelledObservation {
	if s == AllYear {
		return obs
	}
	var out []LabelledObservation
	for _, o := range obs {
		if s.Contains(o.Time.Month()) {
			out = append(out, o)
		}
	}
	return out
}

// PhaseSubsets groups labelled observations by phase in canonical order.
// Phases with no observations are omitted.
func PhaseSubsets(obs []LabelledObservation) []Subset {
	byPhase := make(map[Phase][]LatLon)
	for _, o := range obs {
		if o.Phase == "" {
			continue
		}
		byPhase[o.Phase] = append(byPhase[o.Phase], o.Position())
	}

	var out []Subset
	for _, p := range PhaseOrder() {
		if pts := byPhase[p]; len(pts) > 0 {
			out = append(out, Subset{Name: string(p), Points: pts})
		}
	}
	return out
}

// PeakIntensitySubset selects, per track, every observation that reaches the
// track's minimum vorticity. Ties are all kept.
func PeakIntensitySubset(obs []LabelledObservation) Subset {
	minByTrack := make(map[int64]float64)
	for _, o := range obs {
		if m, ok := minByTrack[o.TrackID]; !ok || o.Vorticity < m {
			minByTrack[o.TrackID] = o.Vorticity
		}
	}

	s := Subset{Name: "peak_intensity"}
	for _, o := range obs {
		if o.Vorticity == minByTrack[o.TrackID] {
			s.Points = append(s.Points, o.Position())
		}
	}
	return s
}

// ClusterSubsets groups observations by their track's cluster label, in
// ascending label order. Tracks without a label are ignored.
func ClusterSubsets(obs []Observation, clusters ClusterAssignment) []Subset {
	byLabel := make(map[int][]LatLon)
	for _, o := range obs {
		l, ok := clusters[o.TrackID]
		if !ok {
			continue
		}
		byLabel[l] = append(byLabel[l], o.Position())
	}

	var out []Subset
	for _, l := range clusters.Labels() {
		if pts := byLabel[l]; len(pts) > 0 {
			out = append(out, Subset{Name: ClusterName(l), Points: pts})
		}
	}
	return out
}
