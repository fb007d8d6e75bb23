// Package domain models extratropical cyclone tracks and their life-cycle
// phases for the South Atlantic climatology.
//
// # Data Source
//
// Tracks come from the TRACK algorithm (Hodges) applied to 850 hPa relative
// vorticity. Each raw CSV row is one cyclone-centre position at one time:
//
//	track_id, date, lon, lat, vor42
//
// where vor42 is relative vorticity truncated at T42, in units of 1e-5 s⁻¹,
// with cyclonic systems positive.
//
// # Conventions
//
// Longitude:
//
//	Raw files carry longitudes in [0, 360). Every observation is normalised
//	to [-180, 180) at ingestion by [NormalizeLongitude]. Nothing downstream
//	handles the [0, 360) form.
//
// Vorticity:
//
//	[Observation.Vorticity] is relative vorticity in s⁻¹ with the
//	meteorological sign, so Southern Hemisphere cyclones are negative.
//	Raw vor42 columns are converted with [VorticityFromVor42]
//	(zeta = -vor42 × 1e-5). Columns already named "zeta" are kept as-is.
//	The strongest point of a track is therefore its minimum vorticity, and
//	the mature phase is centred on a trough of the series.
//
// # Life-cycle phases
//
//	incipient → intensification → mature → decay → residual
//
// A system that re-intensifies after decaying runs a secondary cycle. Its
// phases carry a " 2" suffix ("intensification 2", "mature 2", "decay 2").
// A track has at most one plain and one suffixed interval per base phase.
// Phase intervals are ordered, non-overlapping, and need not cover the
// whole track.
//
// Abbreviations used in life-cycle configuration names:
//
//	Ic incipient | It intensification | M mature | D decay | R residual
//	(a trailing 2 marks the secondary cycle: It2, M2, D2)
//
// # Genesis regions
//
// Regional subsets use the genesis position (the first point of a track):
//
//	SE-BR     52°W–37°W, 38°S–23°S
//	LA-PLATA  69°W–52°W, 38°S–23°S
//	ARG       70°W–50°W, 55°S–39°S
package domain
