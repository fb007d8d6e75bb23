// Command genmock writes deterministic synthetic cyclone tracks in the raw
// TRACK CSV layout, for exercising the climatology jobs without reanalysis
// data. Each track is segmented with the real phase segmenter and a summary
// of the resulting life cycles is printed.
//
// Usage:
//
//	go run ./cmd/genmock -out data/tracks -n 200 -seed 1 -region SE-BR
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/adapter/trackcsv"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/lifecycle"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
)

const step = 6 * time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for track CSV files")
	n := flag.Int("n", 100, "number of tracks")
	seed := flag.Uint64("seed", 1, "random seed")
	regionName := flag.String("region", "SE-BR", "genesis region")
	year := flag.Int("year", 2000, "first year of genesis dates")
	years := flag.Int("years", 5, "number of years spanned")
	perFile := flag.Int("per-file", 50, "tracks per CSV file")
	flag.Parse()

	if *out == "" || *n <= 0 || *years <= 0 || *perFile <= 0 {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -out, -n, -years, -per-file")
	}
	region, err := domain.LookupRegion(*regionName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	tracks := make([]domain.Track, 0, *n)
	for i := range *n {
		t, err := synthTrack(rng, int64(i+1), region, *year, *years)
		if err != nil {
			return fmt.Errorf("track %d: %w", i+1, err)
		}
		tracks = append(tracks, t)
	}

	size := *perFile
	for start := 0; start < len(tracks); start += size {
		end := min(start+size, len(tracks))
		path := filepath.Join(*out, fmt.Sprintf("tracks_%03d.csv", start/size))
		if err := trackcsv.WriteFile(path, tracks[start:end]); err != nil {
			return err
		}
		log.Printf("wrote %s: %d tracks", path, end-start)
	}

	printStats(tracks)
	return nil
}

// synthTrack builds a track starting inside region that drifts south-east
// while its vorticity deepens to a trough and fills again. About one in four
// tracks redevelops into a second trough.
func synthTrack(rng *rand.Rand, id int64, r domain.Region, year, years int) (domain.Track, error) {
	genesis := time.Date(year+rng.IntN(years), time.Month(1+rng.IntN(12)), 1+rng.IntN(28), 6*rng.IntN(4), 0, 0, 0, time.UTC)
	lat := r.MinLat + rng.Float64()*(r.MaxLat-r.MinLat)
	lon := r.MinLon + rng.Float64()*(r.MaxLon-r.MinLon)

	n := 16 + rng.IntN(24)
	peak := 2 + rng.Float64()*6 // vor42 units
	center := float64(n) * (0.35 + 0.3*rng.Float64())
	width := float64(n) / 5
	second := rng.IntN(4) == 0

	dLat := -0.3 - 0.4*rng.Float64()
	dLon := 0.5 + 0.8*rng.Float64()

	obs := make([]domain.Observation, n)
	for i := range obs {
		x := float64(i)
		vor42 := peak * math.Exp(-(x-center)*(x-center)/(2*width*width))
		if second {
			c2 := center + float64(n)/2.5
			vor42 += 0.8 * peak * math.Exp(-(x-c2)*(x-c2)/(2*width*width/2))
		}
		vor42 += 0.5 + 0.05*rng.NormFloat64()
		obs[i] = domain.Observation{
			Time:      genesis.Add(time.Duration(i) * step),
			Lat:       math.Max(-89, lat+dLat*x),
			Lon:       domain.NormalizeLongitude(lon + dLon*x),
			Vorticity: domain.VorticityFromVor42(vor42),
		}
	}
	return domain.NewTrack(id, obs)
}

func printStats(tracks []domain.Track) {
	seg := phase.NewCyclePhaser(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var tps []domain.TrackPeriods
	skipped := map[string]int{}
	for _, t := range tracks {
		res, err := seg.Segment(context.Background(), phase.SeriesFromTrack(t), phase.DefaultOptions())
		if err != nil {
			skipped[phase.SkipReason(err)]++
			continue
		}
		tps = append(tps, domain.TrackPeriods{TrackID: t.ID, Periods: res.Periods})
	}

	fmt.Println("\n=== Life cycles of generated tracks ===")
	fmt.Printf("Total: %d, segmented: %d\n", len(tracks), len(tps))
	reasons := make([]string, 0, len(skipped))
	for r := range skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("Skipped (%s): %d\n", r, skipped[r])
	}
	for _, c := range lifecycle.CountConfigurations(tps) {
		fmt.Printf("  %-12s %4d  %6.2f%%\n", c.Abbreviation, c.Count, c.Percentage)
	}
}
