// Command validate checks density NetCDF files written by the climatology
// jobs: grid layout, value ranges, normalisation, and metadata.
//
// Usage:
//
//	go run ./cmd/validate -k 64 -tolerance 0.05 results/*.nc
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/cyclone-climatology/internal/adapter/netcdf"
	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"gonum.org/v1/gonum/floats"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	k := flag.Int("k", density.DefaultK, "expected number of latitudes")
	tolerance := flag.Float64("tolerance", 0.05, "relative tolerance for the integral check")
	radius := flag.Float64("earth-radius", density.DefaultEarthRadiusKm, "earth radius in km used by the estimator")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(flag.Args(), *k, *tolerance, *radius); code != 0 {
		os.Exit(code)
	}
}

func run(paths []string, k int, tolerance, radius float64) int {
	fmt.Println("=== Track Density Validation ===")
	fmt.Println()

	var datasets []*density.Dataset
	for _, p := range paths {
		ds, err := netcdf.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		datasets = append(datasets, ds)
	}

	phases := []*phase{
		validateGrid(datasets, k),
		validateValues(datasets),
		validateIntegral(datasets, tolerance, radius),
		validateMetadata(datasets),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fields := 0
	for _, ds := range datasets {
		fields += len(ds.Fields)
	}
	fmt.Println()
	fmt.Printf("Datasets: %d, fields: %d\n", len(datasets), fields)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// isDifference reports whether ds holds normalised change maps rather than
// densities.
func isDifference(ds *density.Dataset) bool {
	return strings.HasPrefix(ds.Name, "track_density_difference")
}

// ── Phase 1: grid ──

func validateGrid(datasets []*density.Dataset, k int) *phase {
	p := &phase{name: "Phase 1: Grid layout"}
	fmt.Println("Phase 1: Validating grid layout...")

	for _, ds := range datasets {
		for _, f := range ds.Fields {
			rows, cols := f.Shape()
			if rows != k || cols != 2*k {
				p.errorf("%s/%s: shape (%d, %d), want (%d, %d)", ds.Name, f.Name, rows, cols, k, 2*k)
				continue
			}
			if !ascending(f.Lats) || !ascending(f.Lons) {
				p.errorf("%s/%s: coordinates not ascending", ds.Name, f.Name)
			}
			if f.Lats[0] < -90 || f.Lats[rows-1] > 90 {
				p.errorf("%s/%s: latitudes outside [-90, 90]", ds.Name, f.Name)
			}
			if math.Abs(f.Lons[0]+180) > 1e-6 || math.Abs(f.Lons[cols-1]-180) > 1e-6 {
				p.errorf("%s/%s: longitudes span [%g, %g], want [-180, 180]", ds.Name, f.Name, f.Lons[0], f.Lons[cols-1])
			}
		}
	}
	return p
}

func ascending(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

// ── Phase 2: values ──

func validateValues(datasets []*density.Dataset) *phase {
	p := &phase{name: "Phase 2: Value ranges"}
	fmt.Println("Phase 2: Validating value ranges...")

	for _, ds := range datasets {
		lo := 0.0
		if isDifference(ds) {
			lo = -1
		}
		for _, f := range ds.Fields {
			data := f.Data()
			if floats.HasNaN(data) {
				p.errorf("%s/%s: contains NaN", ds.Name, f.Name)
				continue
			}
			for _, v := range data {
				if math.IsInf(v, 0) {
					p.errorf("%s/%s: contains Inf", ds.Name, f.Name)
					break
				}
			}
			if m := floats.Min(data); m < lo {
				p.errorf("%s/%s: minimum %g below %g", ds.Name, f.Name, m, lo)
			}
			if isDifference(ds) {
				if m := floats.Max(data); m > 1 {
					p.errorf("%s/%s: maximum %g above 1", ds.Name, f.Name, m)
				}
			} else if floats.Max(data) == 0 {
				p.errorf("%s/%s: field is all zero", ds.Name, f.Name)
			}
		}
	}
	return p
}

// ── Phase 3: normalisation ──

func validateIntegral(datasets []*density.Dataset, tolerance, radius float64) *phase {
	p := &phase{name: "Phase 3: Integral recovers observation count"}
	fmt.Println("Phase 3: Validating normalisation...")

	for _, ds := range datasets {
		if isDifference(ds) {
			continue
		}
		for _, f := range ds.Fields {
			if f.Count == 0 || f.TimeUnits == 0 {
				continue
			}
			got := f.Integrate(radius)
			want := float64(f.Count)
			if math.Abs(got-want) > tolerance*want {
				p.errorf("%s/%s: integral %.3f, want %d ± %.0f%%", ds.Name, f.Name, got, f.Count, 100*tolerance)
			}
		}
	}
	return p
}

// ── Phase 4: metadata ──

func validateMetadata(datasets []*density.Dataset) *phase {
	p := &phase{name: "Phase 4: Metadata"}
	fmt.Println("Phase 4: Validating metadata...")

	for _, ds := range datasets {
		if ds.Title == "" {
			p.errorf("%s: missing title", ds.Name)
		}
		if ds.RunID == "" {
			p.errorf("%s: missing run_id", ds.Name)
		}
		seen := make(map[string]bool, len(ds.Fields))
		for _, f := range ds.Fields {
			if seen[f.Name] {
				p.errorf("%s: duplicate field %q", ds.Name, f.Name)
			}
			seen[f.Name] = true
			if !isDifference(ds) && f.TimeUnits <= 0 {
				p.errorf("%s/%s: time_units %d", ds.Name, f.Name, f.TimeUnits)
			}
		}
	}
	return p
}
