package domain

import (
	"fmt"
	"strings"
	"time"
)

// Season is a three-month austral season or AllYear.
type Season string

const (
	SeasonDJF Season = "DJF"
	SeasonMAM Season = "MAM"
	SeasonJJA Season = "JJA"
	SeasonSON Season = "SON"
	AllYear   Season = ""
)

var seasonMonths = map[Season][3]time.Month{
	SeasonDJF: {time.December, time.January, time.February},
	SeasonMAM: {time.March, time.April, time.May},
	SeasonJJA: {time.June, time.July, time.August},
	SeasonSON: {time.September, time.October, time.November},
}

// ParseSeason accepts DJF, MAM, JJA, SON, or ALL / "" for the whole year.
func ParseSeason(s string) (Season, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "ALL" {
		return AllYear, nil
	}
	if _, ok := seasonMonths[Season(s)]; !ok {
		return "", fmt.Errorf("unknown season %q", s)
	}
	return Season(s), nil
}

// String returns the season code, or "ALL" for AllYear.
func (s Season) String() string {
	if s == AllYear {
		return "ALL"
	}
	return string(s)
}

// Contains reports whether m falls in the season.
func (s Season) Contains(m time.Month) bool {
	if s == AllYear {
		return true
	}
	for _, sm := range seasonMonths[s] {
		if sm == m {
			return true
		}
	}
	return false
}

// SeasonOf returns the season containing t.
func SeasonOf(t time.Time) Season {
	for _, s := range []Season{SeasonDJF, SeasonMAM, SeasonJJA, SeasonSON} {
		if s.Contains(t.Month()) {
			return s
		}
	}
	return AllYear
}

// TimeUnits counts distinct calendar year-months among times.
func TimeUnits(times []time.Time) int {
	seen := make(map[[2]int]struct{})
	for _, t := range times {
		seen[[2]int{t.Year(), int(t.Month())}] = struct{}{}
	}
	return len(seen)
}
