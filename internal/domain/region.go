package domain

import (
	"fmt"
	"strings"
)

// Region is a lat/lon bounding box used to select tracks by genesis position.
type Region struct {
	Name   string
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

var regions = []Region{
	{Name: "SE-BR", MinLon: -52, MinLat: -38, MaxLon: -37, MaxLat: -23},
	{Name: "LA-PLATA", MinLon: -69, MinLat: -38, MaxLon: -52, MaxLat: -23},
	{Name: "ARG", MinLon: -70, MinLat: -55, MaxLon: -50, MaxLat: -39},
}

// Regions returns the built-in genesis regions.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// LookupRegion finds a built-in region by name, ignoring case.
func LookupRegion(name string) (Region, error) {
	for _, r := range regions {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("unknown region %q", name)
}

// Contains reports whether the point lies inside the box, edges included.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// FilterByGenesisRegion keeps tracks whose first position lies inside r.
func FilterByGenesisRegion(tracks []Track, r Region) []Track {
	var out []Track
	for _, t := range tracks {
		if t.Len() == 0 {
			continue
		}
		g := t.First()
		if r.Contains(g.Lat, g.Lon) {
			out = append(out, t)
		}
	}
	return out
}
