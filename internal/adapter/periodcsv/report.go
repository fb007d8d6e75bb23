package periodcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/lifecycle"
)

// WriteConfigurations writes a configuration count table.
func WriteConfigurations(w io.Writer, configs []lifecycle.Configuration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"configuration", "abbreviation", "count", "percentage"}); err != nil {
		return err
	}
	for _, c := range configs {
		rec := []string{c.Name, c.Abbreviation, strconv.Itoa(c.Count), strconv.FormatFloat(c.Percentage, 'f', 2, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeasonalConfigurations writes configuration counts per season, seasons
// in DJF, MAM, JJA, SON order.
func WriteSeasonalConfigurations(w io.Writer, bySeason map[domain.Season][]lifecycle.Configuration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"season", "configuration", "abbreviation", "count", "percentage"}); err != nil {
		return err
	}
	for _, s := range []domain.Season{domain.SeasonDJF, domain.SeasonMAM, domain.SeasonJJA, domain.SeasonSON} {
		for _, c := range bySeason[s] {
			rec := []string{s.String(), c.Name, c.Abbreviation, strconv.Itoa(c.Count), strconv.FormatFloat(c.Percentage, 'f', 2, 64)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrackLists writes, for each configuration, the ids of its tracks as
// a space-separated list.
func WriteTrackLists(w io.Writer, configs []lifecycle.Configuration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"abbreviation", "track_ids"}); err != nil {
		return err
	}
	for _, c := range configs {
		ids := make([]string, len(c.TrackIDs))
		for i, id := range slices.Sorted(slices.Values(c.TrackIDs)) {
			ids[i] = strconv.FormatInt(id, 10)
		}
		if err := cw.Write([]string{c.Abbreviation, strings.Join(ids, " ")}); err != nil {
			return fmt.Errorf("write track list %s: %w", c.Abbreviation, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDurations writes per-phase duration statistics in hours.
func WriteDurations(w io.Writer, ds []lifecycle.DurationStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"phase", "n", "mean", "std", "median", "p10", "p90"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, d := range ds {
		rec := []string{string(d.Phase), strconv.Itoa(d.N), f(d.Mean), f(d.StdDev), f(d.Median), f(d.P10), f(d.P90)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReportFiles writes every table of r into dir, named after scope, and
// returns the paths written.
func WriteReportFiles(dir, scope string, r lifecycle.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	tables := []struct {
		suffix string
		write  func(io.Writer) error
	}{
		{"species", func(w io.Writer) error { return WriteConfigurations(w, r.Configurations) }},
		{"species_by_season", func(w io.Writer) error { return WriteSeasonalConfigurations(w, r.BySeason) }},
		{"species_tracks", func(w io.Writer) error { return WriteTrackLists(w, r.Configurations) }},
		{"phase_durations", func(w io.Writer) error { return WriteDurations(w, r.Durations) }},
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, scope+"_"+t.suffix+".csv")
		if err := writeFile(path, t.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}
