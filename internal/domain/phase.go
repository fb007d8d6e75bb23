package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase names a life-cycle stage.
type Phase string

const (
	PhaseIncipient       Phase = "incipient"
	PhaseIntensification Phase = "intensification"
	PhaseMature          Phase = "mature"
	PhaseDecay           Phase = "decay"
	PhaseResidual        Phase = "residual"
)

// SecondarySuffix marks phases of a secondary development cycle.
const SecondarySuffix = " 2"

// BasePhases lists the base phases in life-cycle order.
var BasePhases = []Phase{PhaseIncipient, PhaseIntensification, PhaseMature, PhaseDecay, PhaseResidual}

var abbreviations = map[Phase]string{
	PhaseIncipient:       "Ic",
	PhaseIntensification: "It",
	PhaseMature:          "M",
	PhaseDecay:           "D",
	PhaseResidual:        "R",
}

// SecondaryPhase returns the secondary-cycle name of p.
func SecondaryPhase(p Phase) Phase {
	return p.Base() + SecondarySuffix
}

// Base strips the secondary suffix.
func (p Phase) Base() Phase {
	return Phase(strings.TrimSuffix(string(p), SecondarySuffix))
}

// IsSecondary reports whether p belongs to a secondary cycle.
func (p Phase) IsSecondary() bool {
	return strings.HasSuffix(string(p), SecondarySuffix)
}

// Valid reports whether p is a known base or secondary phase.
func (p Phase) Valid() bool {
	_, ok := abbreviations[p.Base()]
	return ok
}

// Abbreviation returns the short form used in configuration names (It, M2, ...).
func (p Phase) Abbreviation() string {
	a, ok := abbreviations[p.Base()]
	if !ok {
		return string(p)
	}
	if p.IsSecondary() {
		return a + "2"
	}
	return a
}

// PhaseOrder returns every phase name in canonical subset order: the base
// phases followed by their secondary variants.
func PhaseOrder() []Phase {
	out := make([]Phase, 0, 2*len(BasePhases))
	out = append(out, BasePhases...)
	for _, p := range BasePhases {
		out = append(out, SecondaryPhase(p))
	}
	return out
}

// Interval is one named phase span of a track, inclusive at both ends.
type Interval struct {
	Phase Phase     `json:"period"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t lies within the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

var (
	// ErrInvalidPeriods is returned by Periods.Validate.
	ErrInvalidPeriods = errors.New("invalid periods")
)

// Periods is the ordered set of phase intervals of one track.
type Periods []Interval

// Has reports whether a phase with the given name exists.
func (ps Periods) Has(name Phase) bool {
	_, ok := ps.Get(name)
	return ok
}

// Get returns the interval with the given name.
func (ps Periods) Get(name Phase) (Interval, bool) {
	for _, iv := range ps {
		if iv.Phase == name {
			return iv, true
		}
	}
	return Interval{}, false
}

// Names returns phase names in order.
func (ps Periods) Names() []Phase {
	out := make([]Phase, len(ps))
	for i, iv := range ps {
		out[i] = iv.Phase
	}
	return out
}

// Validate checks that intervals are well formed, sorted, non-overlapping,
// and that each base phase appears at most once plain and once secondary.
func (ps Periods) Validate() error {
	seen := make(map[Phase]bool, len(ps))
	for i, iv := range ps {
		if !iv.Phase.Valid() {
			return fmt.Errorf("%w: unknown phase %q", ErrInvalidPeriods, iv.Phase)
		}
		if iv.End.Before(iv.Start) {
			return fmt.Errorf("%w: %s ends before it starts", ErrInvalidPeriods, iv.Phase)
		}
		if seen[iv.Phase] {
			return fmt.Errorf("%w: %s appears twice", ErrInvalidPeriods, iv.Phase)
		}
		seen[iv.Phase] = true
		if i > 0 && !iv.Start.After(ps[i-1].End) {
			return fmt.Errorf("%w: %s overlaps %s", ErrInvalidPeriods, iv.Phase, ps[i-1].Phase)
		}
	}
	return nil
}

// Label returns the phase containing t.
func (ps Periods) Label(t time.Time) (Phase, bool) {
	for _, iv := range ps {
		if iv.Contains(t) {
			return iv.Phase, true
		}
	}
	return "", false
}

// LifeCycle returns the full configuration name, e.g.
// "incipient, intensification, mature, decay".
func (ps Periods) LifeCycle() string {
	names := make([]string, len(ps))
	for i, iv := range ps {
		names[i] = string(iv.Phase)
	}
	return strings.Join(names, ", ")
}

// Abbreviated returns the short configuration name, e.g. "IcItMD".
func (ps Periods) Abbreviated() string {
	var b strings.Builder
	for _, iv := range ps {
		b.WriteString(iv.Phase.Abbreviation())
	}
	return b.String()
}

// TrackPeriods pairs a track with its phase intervals.
type TrackPeriods struct {
	TrackID int64   `json:"track_id"`
	Periods Periods `json:"periods"`
}
