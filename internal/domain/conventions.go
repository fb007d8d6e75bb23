package domain

import "math"

// Vor42Scale converts TRACK vor42 units to s⁻¹.
const Vor42Scale = 1e-5

// NormalizeLongitude wraps lon into [-180, 180).
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// VorticityFromVor42 converts a raw TRACK vor42 value (cyclonic positive,
// 1e-5 s⁻¹) to relative vorticity in s⁻¹ with the meteorological sign.
func VorticityFromVor42(v float64) float64 {
	return -v * Vor42Scale
}

// Vor42FromVorticity is the inverse of VorticityFromVor42.
func Vor42FromVorticity(zeta float64) float64 {
	return -zeta / Vor42Scale
}
