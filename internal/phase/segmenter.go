// Package phase segments a cyclone's vorticity series into life-cycle
// phases (incipient, intensification, mature, decay, residual, plus the
// " 2" phases of a secondary development).
package phase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

var (
	// ErrSeriesTooShort is returned when the series has fewer samples than
	// Thresholds.MinLength.
	ErrSeriesTooShort = errors.New("series too short")

	// ErrLengthMismatch is returned when values and times differ in length.
	ErrLengthMismatch = errors.New("values and times differ in length")

	// ErrTimesNotIncreasing is returned when timestamps are not strictly increasing.
	ErrTimesNotIncreasing = errors.New("times not strictly increasing")

	// ErrNoMaturePhase is returned when no mature stage passes the thresholds.
	ErrNoMaturePhase = errors.New("no mature phase")
)

// Series is a vorticity series with its timestamps. Peak intensity is the
// minimum value.
type Series struct {
	Values []float64
	Times  []time.Time
}

// SeriesFromTrack builds the series of a track.
func SeriesFromTrack(t domain.Track) Series {
	return Series{Values: t.Vorticity(), Times: t.Times()}
}

// Processed holds the intermediate series for inspection. Steps that were
// not applied are nil.
type Processed struct {
	Filtered   []float64 `json:"filtered,omitempty"`
	Smoothed   []float64 `json:"smoothed,omitempty"`
	Smoothed2  []float64 `json:"smoothed2,omitempty"`
	Derivative []float64 `json:"derivative"`
}

// Result is the outcome of a segmentation.
type Result struct {
	Periods   domain.Periods
	Processed Processed
}

// Segmenter assigns life-cycle phases to a series.
type Segmenter interface {
	Segment(ctx context.Context, s Series, opts Options) (Result, error)
}

// Validate checks the series shape against opts.
func (s Series) Validate(minLength int) error {
	if len(s.Values) != len(s.Times) {
		return fmt.Errorf("%w: %d values, %d times", ErrLengthMismatch, len(s.Values), len(s.Times))
	}
	if len(s.Values) < minLength {
		return fmt.Errorf("%w: %d samples, need %d", ErrSeriesTooShort, len(s.Values), minLength)
	}
	for i := 1; i < len(s.Times); i++ {
		if !s.Times[i].After(s.Times[i-1]) {
			return fmt.Errorf("%w: sample %d at %s", ErrTimesNotIncreasing, i, s.Times[i].Format(time.RFC3339))
		}
	}
	return nil
}

// SkipReason maps a segmentation error to a short metric label.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrSeriesTooShort):
		return "too_short"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrTimesNotIncreasing):
		return "times_not_increasing"
	case errors.Is(err, ErrNoMaturePhase):
		return "no_mature"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
