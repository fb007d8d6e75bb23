package phase

import (
	"fmt"
	"strings"
	"time"
)

// Toggle is a tri-state switch for optional processing steps.
type Toggle int

const (
	Off Toggle = iota
	On
	Auto
)

// ParseToggle accepts true/false/auto and the usual synonyms.
func ParseToggle(s string) (Toggle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return On, nil
	case "false", "0", "off", "no", "":
		return Off, nil
	case "auto":
		return Auto, nil
	}
	return Off, fmt.Errorf("invalid toggle %q: want true, false, or auto", s)
}

func (t Toggle) String() string {
	switch t {
	case On:
		return "true"
	case Auto:
		return "auto"
	default:
		return "false"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Toggle) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Toggle) UnmarshalText(b []byte) error {
	v, err := ParseToggle(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Thresholds are the fractional cut-offs of the mature-stage detector and
// the incipient/residual split.
type Thresholds struct {
	// MatureDistance is the fraction of each flank taken into the mature span.
	MatureDistance float64 `json:"mature_distance"`
	// MatureMinLength is the minimum mature duration as a fraction of the series.
	MatureMinLength float64 `json:"mature_min_length"`
	// MinProminence is the minimum valley depth as a fraction of the series range.
	MinProminence float64 `json:"min_prominence"`
	// IncipientSlope is the fraction of the steepest intensification slope
	// below which the leading samples are incipient.
	IncipientSlope float64 `json:"incipient_slope"`
	// ResidualSlope is the fraction of the steepest decay slope below which
	// the trailing samples are residual.
	ResidualSlope float64 `json:"residual_slope"`
	// MinLength is the minimum number of samples.
	MinLength int `json:"min_length"`
}

// Options configures a segmentation.
type Options struct {
	UseFilter         Toggle        `json:"use_filter"`
	UseSmoothing      Toggle        `json:"use_smoothing"`
	UseSmoothingTwice Toggle        `json:"use_smoothing_twice"`
	FilterCutoff      time.Duration `json:"filter_cutoff"`
	PolyOrder         int           `json:"poly_order"`
	Thresholds        Thresholds    `json:"thresholds"`
}

// DefaultThresholds returns the standard detector thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MatureDistance:  0.125,
		MatureMinLength: 0.03,
		MinProminence:   0.1,
		IncipientSlope:  0.25,
		ResidualSlope:   0.25,
		MinLength:       6,
	}
}

// DefaultOptions returns the options used for reanalysis tracks.
func DefaultOptions() Options {
	return Options{
		UseFilter:         Off,
		UseSmoothing:      Auto,
		UseSmoothingTwice: Auto,
		FilterCutoff:      48 * time.Hour,
		PolyOrder:         3,
		Thresholds:        DefaultThresholds(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FilterCutoff <= 0 {
		o.FilterCutoff = d.FilterCutoff
	}
	if o.PolyOrder <= 0 {
		o.PolyOrder = d.PolyOrder
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = d.Thresholds
	}
	if o.Thresholds.MinLength <= 0 {
		o.Thresholds.MinLength = d.Thresholds.MinLength
	}
	return o
}
