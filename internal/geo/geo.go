// Package geo provides the pure geographic helpers used by the search
// pipelines: great-circle distance between airports and the duration-based
// heuristics that size the explorable area of a trip.
package geo

import "math"

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// maxRadiusKM caps the explorable radius regardless of trip duration.
const maxRadiusKM = 5000

// HaversineKM returns the great-circle distance in kilometers between two
// coordinates. The result is symmetric and zero for identical points.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := radians(lat2 - lat1)
	dlon := radians(lon2 - lon1)
	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dlon/2), 2)
	return earthRadiusKM * 2 * math.Asin(math.Sqrt(a))
}

// EstimateRadiusKM maps a trip duration to an explorable radius.
//
// The mapping is piecewise linear with diminishing returns: longer trips
// widen the radius, but each extra day past a breakpoint buys fewer
// kilometers. The result is capped at 5000 km and is continuous at the
// breakpoints (7 days -> 1400 km, 15 days -> 2600 km).
func EstimateRadiusKM(durationDays int) int {
	var radius int
	switch {
	case durationDays <= 7:
		radius = durationDays * 200
	case durationDays <= 15:
		radius = 1400 + (durationDays-7)*150
	default:
		radius = 2600 + (durationDays-15)*100
	}
	if radius > maxRadiusKM {
		return maxRadiusKM
	}
	return radius
}

// EstimateStops suggests the number of intermediate stops for a trip of the
// given duration. Each duration tier has its own cap (2, 3 and 4 stops).
//
// The tiered integer division is kept as-is across tier boundaries even
// where rounding makes the result non-monotonic for adjacent durations.
func EstimateStops(durationDays int) int {
	switch {
	case durationDays <= 7:
		return min(2, durationDays/3)
	case durationDays <= 15:
		return min(3, durationDays/4)
	default:
		return min(4, durationDays/5)
	}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
