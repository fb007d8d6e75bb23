package phase

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2005, 7, 10, 0, 0, 0, 0, time.UTC)

func hourly(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func at(h int) time.Time { return start.Add(time.Duration(h) * time.Hour) }

func rawOptions() Options {
	o := DefaultOptions()
	o.UseFilter = Off
	o.UseSmoothing = Off
	o.UseSmoothingTwice = Off
	return o
}

func newTestPhaser() *CyclePhaser {
	return NewCyclePhaser(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func assertWellFormed(t *testing.T, ps domain.Periods) {
	t.Helper()
	require.NoError(t, ps.Validate())
	counts := make(map[domain.Phase]int)
	for i, iv := range ps {
		assert.False(t, iv.End.Before(iv.Start), "%s start after end", iv.Phase)
		if i > 0 {
			assert.True(t, iv.Start.After(ps[i-1].End), "%s overlaps %s", iv.Phase, ps[i-1].Phase)
		}
		counts[iv.Phase.Base()]++
	}
	for p, n := range counts {
		assert.LessOrEqual(t, n, 2, "phase %s", p)
	}
}

func TestCyclePhaser_SingleTrough(t *testing.T) {
	s := Series{
		Values: []float64{-1, -2, -3, -4, -5, -4, -3, -2, -1, 0},
		Times:  hourly(10),
	}

	res, err := newTestPhaser().Segment(context.Background(), s, rawOptions())
	require.NoError(t, err)

	want := domain.Periods{
		{Phase: domain.PhaseIntensification, Start: at(0), End: at(2)},
		{Phase: domain.PhaseMature, Start: at(3), End: at(5)},
		{Phase: domain.PhaseDecay, Start: at(6), End: at(9)},
	}
	if diff := cmp.Diff(want, res.Periods); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}
	assertWellFormed(t, res.Periods)
	for _, iv := range res.Periods {
		assert.False(t, iv.Phase.IsSecondary())
	}
	assert.Nil(t, res.Processed.Smoothed)
	assert.Len(t, res.Processed.Derivative, 10)
}

func doubleTrough() []float64 {
	z := make([]float64, 21)
	for i := 0; i <= 5; i++ {
		z[i] = -float64(i)
	}
	for i := 6; i <= 10; i++ {
		z[i] = -5 + 0.8*float64(i-5)
	}
	for i := 11; i <= 15; i++ {
		z[i] = -1 - float64(i-10)
	}
	for i := 16; i <= 20; i++ {
		z[i] = -6 + float64(i-15)
	}
	return z
}

func TestCyclePhaser_SecondaryDevelopment(t *testing.T) {
	s := Series{Values: doubleTrough(), Times: hourly(21)}

	res, err := newTestPhaser().Segment(context.Background(), s, rawOptions())
	require.NoError(t, err)

	want := domain.Periods{
		{Phase: "intensification", Start: at(0), End: at(3)},
		{Phase: "mature", Start: at(4), End: at(6)},
		{Phase: "decay", Start: at(7), End: at(10)},
		{Phase: "intensification 2", Start: at(11), End: at(13)},
		{Phase: "mature 2", Start: at(14), End: at(16)},
		{Phase: "decay 2", Start: at(17), End: at(20)},
	}
	if diff := cmp.Diff(want, res.Periods); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}
	assertWellFormed(t, res.Periods)
	assert.Equal(t, "ItMDIt2M2D2", res.Periods.Abbreviated())
}

func TestCyclePhaser_LeadingDecay(t *testing.T) {
	// Weakens for two hours, then a full cycle.
	s := Series{
		Values: []float64{-3, -2, -1, -2, -3, -4, -5, -6, -5, -4, -3, -2, -1},
		Times:  hourly(13),
	}

	res, err := newTestPhaser().Segment(context.Background(), s, rawOptions())
	require.NoError(t, err)
	assertWellFormed(t, res.Periods)

	require.NotEmpty(t, res.Periods)
	first := res.Periods[0]
	assert.Equal(t, domain.PhaseDecay, first.Phase)
	assert.Equal(t, at(0), first.Start)
	assert.Equal(t, at(2), first.End)
	assert.True(t, res.Periods.Has(domain.PhaseMature))
	assert.True(t, res.Periods.Has("decay 2"))
}

func TestCyclePhaser_IncipientAndResidual(t *testing.T) {
	// Slow start, sharp deepening, sharp recovery, slow tail.
	z := []float64{0, -0.05, -0.1, -0.15, -1.5, -3, -4.5, -6, -4.5, -3, -1.5, -0.15, -0.1, -0.05, 0}

	res, err := newTestPhaser().Segment(context.Background(), Series{Values: z, Times: hourly(len(z))}, rawOptions())
	require.NoError(t, err)
	assertWellFormed(t, res.Periods)

	names := res.Periods.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, domain.PhaseIncipient, names[0])
	assert.Equal(t, domain.PhaseResidual, names[len(names)-1])
	assert.True(t, res.Periods.Has(domain.PhaseIntensification))
	assert.True(t, res.Periods.Has(domain.PhaseDecay))
	assert.Equal(t, "IcItMDR", res.Periods.Abbreviated())
}

func TestCyclePhaser_Errors(t *testing.T) {
	p := newTestPhaser()
	ctx := context.Background()

	_, err := p.Segment(ctx, Series{Values: []float64{1, 0, 1}, Times: hourly(3)}, rawOptions())
	assert.ErrorIs(t, err, ErrSeriesTooShort)

	_, err = p.Segment(ctx, Series{Values: make([]float64, 8), Times: hourly(7)}, rawOptions())
	assert.ErrorIs(t, err, ErrLengthMismatch)

	times := hourly(8)
	times[4] = times[3]
	_, err = p.Segment(ctx, Series{Values: []float64{0, -1, -2, -3, -2, -1, 0, 1}, Times: times}, rawOptions())
	assert.ErrorIs(t, err, ErrTimesNotIncreasing)

	// Monotonic deepening has no trough.
	_, err = p.Segment(ctx, Series{Values: []float64{0, -1, -2, -3, -4, -5, -6, -7}, Times: hourly(8)}, rawOptions())
	assert.ErrorIs(t, err, ErrNoMaturePhase)

	_, err = p.Segment(ctx, Series{Values: make([]float64, 8), Times: hourly(8)}, rawOptions())
	assert.ErrorIs(t, err, ErrNoMaturePhase)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.Segment(cancelled, Series{Values: doubleTrough(), Times: hourly(21)}, rawOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCyclePhaser_ShallowTroughIgnored(t *testing.T) {
	// The ripple at index 3 is under 10% of the range.
	z := []float64{0, -1, -2, -1.95, -3, -4, -5, -6, -7, -8, -7, -6, -5, -4, -3, -2}
	res, err := newTestPhaser().Segment(context.Background(), Series{Values: z, Times: hourly(len(z))}, rawOptions())
	require.NoError(t, err)
	assert.True(t, res.Periods.Has(domain.PhaseMature))
	assert.False(t, res.Periods.Has("mature 2"))
}

func syntheticTrack(n int) Series {
	z := make([]float64, n)
	for i := range z {
		x := float64(i) / float64(n-1)
		z[i] = -1e-4*math.Exp(-math.Pow((x-0.45)/0.18, 2)) + 2e-6*math.Sin(float64(i)*1.7)
	}
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 6 * time.Hour)
	}
	return Series{Values: z, Times: times}
}

func TestCyclePhaser_DefaultOptions(t *testing.T) {
	s := syntheticTrack(60)
	p := newTestPhaser()

	res, err := p.Segment(context.Background(), s, DefaultOptions())
	require.NoError(t, err)
	assertWellFormed(t, res.Periods)
	assert.True(t, res.Periods.Has(domain.PhaseMature))
	assert.Len(t, res.Processed.Smoothed, 60)
	assert.Len(t, res.Processed.Smoothed2, 60)
	assert.Nil(t, res.Processed.Filtered)

	again, err := p.Segment(context.Background(), s, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestCyclePhaser_Filter(t *testing.T) {
	s := syntheticTrack(60)
	opts := DefaultOptions()
	opts.UseFilter = On

	res, err := newTestPhaser().Segment(context.Background(), s, opts)
	require.NoError(t, err)
	assertWellFormed(t, res.Periods)
	require.Len(t, res.Processed.Filtered, 60)
	assert.InDelta(t, s.Values[0], res.Processed.Filtered[0], 1e-5)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{UseSmoothing: On}.withDefaults()
	assert.Equal(t, 48*time.Hour, o.FilterCutoff)
	assert.Equal(t, 3, o.PolyOrder)
	assert.Equal(t, DefaultThresholds(), o.Thresholds)
	assert.Equal(t, On, o.UseSmoothing)
}

func TestParseToggle(t *testing.T) {
	tests := map[string]Toggle{
		"true": On, "TRUE": On, "1": On, "yes": On,
		"false": Off, "0": Off, "": Off, "off": Off,
		"auto": Auto, " Auto ": Auto,
	}
	for in, want := range tests {
		got, err := ParseToggle(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseToggle("maybe")
	assert.Error(t, err)

	var tg Toggle
	require.NoError(t, tg.UnmarshalText([]byte("auto")))
	assert.Equal(t, Auto, tg)
	b, err := On.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "true", string(b))
}

func TestSkipReason(t *testing.T) {
	assert.Equal(t, "too_short", SkipReason(ErrSeriesTooShort))
	assert.Equal(t, "no_mature", SkipReason(ErrNoMaturePhase))
	assert.Equal(t, "canceled", SkipReason(context.Canceled))
	assert.Equal(t, "other", SkipReason(assert.AnError))
}
