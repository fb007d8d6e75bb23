package phase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// CyclePhaser is the default Segmenter. It detects up to two mature stages
// as the deepest prominent troughs of the processed series and derives the
// remaining phases from the flanks around them.
type CyclePhaser struct {
	logger *slog.Logger
}

// NewCyclePhaser creates a CyclePhaser.
func NewCyclePhaser(logger *slog.Logger) *CyclePhaser {
	if logger == nil {
		logger = slog.Default()
	}
	return &CyclePhaser{logger: logger}
}

// Segment implements Segmenter.
func (c *CyclePhaser) Segment(ctx context.Context, s Series, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()
	if err := s.Validate(opts.Thresholds.MinLength); err != nil {
		return Result{}, err
	}

	proc, z, err := process(s, opts)
	if err != nil {
		return Result{}, err
	}

	cycles := c.matureStages(z, s.Times, opts.Thresholds)
	if len(cycles) == 0 {
		return Result{Processed: proc}, ErrNoMaturePhase
	}

	labels := labelSamples(z, proc.Derivative, cycles, opts.Thresholds)
	return Result{
		Periods:   c.intervals(labels, s.Times),
		Processed: proc,
	}, nil
}

// process applies the optional filter and smoothing passes and returns the
// series used for detection.
func process(s Series, opts Options) (Processed, []float64, error) {
	var proc Processed
	n := len(s.Values)
	z := s.Values

	// Auto filters only series spanning at least two cutoff periods.
	span := s.Times[n-1].Sub(s.Times[0])
	if opts.UseFilter == On || (opts.UseFilter == Auto && span >= 2*opts.FilterCutoff) {
		proc.Filtered = lowPass(z, s.Times, opts.FilterCutoff)
		z = proc.Filtered
	}

	var window int
	switch opts.UseSmoothing {
	case On:
		window = forcedWindow(n, 2, opts.PolyOrder)
	case Auto:
		window = autoWindow(n, 2, opts.PolyOrder)
	}
	if window > 0 {
		sm, err := savgol(z, window, opts.PolyOrder)
		if err != nil {
			return proc, nil, err
		}
		proc.Smoothed = sm
		z = sm

		var window2 int
		switch opts.UseSmoothingTwice {
		case On:
			window2 = forcedWindow(n, 4, opts.PolyOrder)
		case Auto:
			if n >= 48 {
				window2 = autoWindow(n, 4, opts.PolyOrder)
			}
		}
		if window2 > 0 {
			sm2, err := savgol(z, window2, opts.PolyOrder)
			if err != nil {
				return proc, nil, err
			}
			proc.Smoothed2 = sm2
			z = sm2
		}
	}

	proc.Derivative = gradient(z, s.Times)
	return proc, z, nil
}

// cycle is one development cycle: the valley at V bounded by the peaks L
// and R, with the mature stage spanning [MS, ME].
type cycle struct {
	L, V, R int
	MS, ME  int
}

// valleys returns the local minima of z. A flat bottom counts once, at its
// middle sample.
func valleys(z []float64) []int {
	var out []int
	n := len(z)
	for i := 1; i < n-1; {
		j := i
		for j+1 < n && z[j+1] == z[i] {
			j++
		}
		if j < n-1 && z[i-1] > z[i] && z[j+1] > z[i] {
			out = append(out, (i+j)/2)
		}
		i = j + 1
	}
	return out
}

func argmax(z []float64, lo, hi int, last bool) int {
	best := lo
	for i := lo; i <= hi; i++ {
		if z[i] > z[best] || (last && z[i] == z[best]) {
			best = i
		}
	}
	return best
}

// prominentValleys keeps valleys deep enough relative to the series range
// and returns at most the two deepest in time order.
func prominentValleys(z []float64, minProminence float64) []int {
	lo, hi := z[0], z[0]
	for _, v := range z {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		return nil
	}

	n := len(z)
	var keep []int
	for _, v := range valleys(z) {
		left := z[argmax(z, 0, v, false)]
		right := z[argmax(z, v, n-1, false)]
		if math.Min(left, right)-z[v] >= minProminence*span {
			keep = append(keep, v)
		}
	}

	sort.SliceStable(keep, func(a, b int) bool { return z[keep[a]] < z[keep[b]] })
	if len(keep) > 2 {
		keep = keep[:2]
	}
	sort.Ints(keep)
	return keep
}

// bounds derives the flanking peaks of each valley. Consecutive valleys share
// the highest sample between them.
func bounds(z []float64, vs []int) []cycle {
	n := len(z)
	cs := make([]cycle, len(vs))
	for k, v := range vs {
		cs[k].V = v
		if k == 0 {
			cs[k].L = argmax(z, 0, v, true)
		} else {
			cs[k].L = cs[k-1].R
		}
		if k+1 < len(vs) {
			cs[k].R = argmax(z, v+1, vs[k+1]-1, false)
		} else {
			cs[k].R = argmax(z, v, n-1, false)
		}
	}
	return cs
}

// matureSpan places the mature stage around the valley, a fixed fraction of
// each flank in time, rounded outward to samples and kept strictly inside
// the flanking peaks.
func matureSpan(c *cycle, times []time.Time, frac float64) {
	tv := times[c.V]
	start := tv.Add(-time.Duration(frac * float64(tv.Sub(times[c.L]))))
	end := tv.Add(time.Duration(frac * float64(times[c.R].Sub(tv))))

	c.MS = c.V
	for c.MS > c.L+1 && times[c.MS].After(start) {
		c.MS--
	}
	c.ME = c.V
	for c.ME < c.R-1 && times[c.ME].Before(end) {
		c.ME++
	}
}

func (c *CyclePhaser) matureStages(z []float64, times []time.Time, th Thresholds) []cycle {
	vs := prominentValleys(z, th.MinProminence)
	total := times[len(times)-1].Sub(times[0])
	minDur := time.Duration(th.MatureMinLength * float64(total))

	for len(vs) > 0 {
		cs := bounds(z, vs)
		short := -1
		for k := range cs {
			matureSpan(&cs[k], times, th.MatureDistance)
			if times[cs[k].ME].Sub(times[cs[k].MS]) <= minDur {
				short = k
				break
			}
		}
		if short < 0 {
			return cs
		}
		c.logger.Debug("mature stage too short, dropping",
			"valley", vs[short], "min_duration", minDur)
		vs = append(vs[:short:short], vs[short+1:]...)
	}
	return nil
}

// labelSamples assigns a base phase to each sample; "" leaves it unlabelled.
func labelSamples(z, dz []float64, cs []cycle, th Thresholds) []domain.Phase {
	n := len(z)
	labels := make([]domain.Phase, n)
	fill := func(lo, hi int, p domain.Phase) {
		for i := max(lo, 0); i <= hi && i < n; i++ {
			labels[i] = p
		}
	}

	first := cs[0]
	if first.L > 0 {
		fill(0, first.L, domain.PhaseDecay)
	}
	for k, c := range cs {
		start := c.L + 1
		if k == 0 && c.L == 0 {
			start = 0
		}
		fill(start, c.MS-1, domain.PhaseIntensification)
		fill(c.MS, c.ME, domain.PhaseMature)
		fill(c.ME+1, c.R, domain.PhaseDecay)
	}
	last := cs[len(cs)-1]
	if last.R < n-1 {
		fill(last.R+1, n-1, domain.PhaseIntensification)
	}

	// Incipient: slow leading part of the first intensification.
	itStart := first.L + 1
	if first.L == 0 {
		itStart = 0
	}
	if itEnd := first.MS - 1; itEnd > itStart {
		steepest := maxAbs(dz[itStart : itEnd+1])
		i := itStart
		for i < itEnd && math.Abs(dz[i]) < th.IncipientSlope*steepest {
			i++
		}
		fill(itStart, i-1, domain.PhaseIncipient)
	}

	// Residual: slow tail of a final decay that runs to the end.
	if last.R == n-1 {
		dStart := last.ME + 1
		if dStart < n-1 {
			steepest := maxAbs(dz[dStart:])
			i := n - 1
			for i > dStart && math.Abs(dz[i]) < th.ResidualSlope*steepest {
				i--
			}
			fill(i+1, n-1, domain.PhaseResidual)
		}
	}
	return labels
}

func maxAbs(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// intervals turns per-sample labels into named intervals. The first run of a
// base phase keeps its name, the second gets the secondary suffix, and later
// runs are left out.
func (c *CyclePhaser) intervals(labels []domain.Phase, times []time.Time) domain.Periods {
	runs := make(map[domain.Phase]int)
	var out domain.Periods

	for i := 0; i < len(labels); {
		j := i
		for j+1 < len(labels) && labels[j+1] == labels[i] {
			j++
		}
		if p := labels[i]; p != "" {
			runs[p]++
			switch runs[p] {
			case 1:
				out = append(out, domain.Interval{Phase: p, Start: times[i], End: times[j]})
			case 2:
				out = append(out, domain.Interval{Phase: domain.SecondaryPhase(p), Start: times[i], End: times[j]})
			default:
				c.logger.Debug("extra phase run left unlabelled",
					"phase", string(p), "run", runs[p], "start", times[i], "end", times[j])
			}
		}
		i = j + 1
	}
	return out
}
