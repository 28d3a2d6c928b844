package geo

import "math"

// Distance calculates great-circle distance between two points using the
// Haversine formula. The result is in the same unit as earthRadius
// (EarthRadiusKm or EarthRadiusMi).
func Distance(p1, p2 Coordinate, earthRadius float64) float64 {
	// Identical points are exactly zero, no float noise
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	dlat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	dlon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)

	// Floating-point error can push a marginally outside [0, 1] for
	// near-identical or near-antipodal points, which would make Sqrt NaN
	a = clamp(a, 0, 1)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

// DistanceKm is shorthand for Distance with the kilometer radius.
func DistanceKm(p1, p2 Coordinate) float64 {
	return Distance(p1, p2, EarthRadiusKm)
}

// PathLength sums the segment distances along an ordered path. Used for
// trip-distance totals; returns 0 for paths shorter than two points.
func PathLength(path []Coordinate, earthRadius float64) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += Distance(path[i], path[i+1], earthRadius)
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
