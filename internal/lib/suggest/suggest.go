// Package suggest ranks address candidates by proximity to a position,
// for "nearest suggestion" pickers. A geohash cell prefilter keeps the
// haversine pass off candidates that cannot possibly be in range.
package suggest

import (
	"math"
	"sort"

	"github.com/mmcloughlin/geohash"

	"github.com/rideline/navigator/internal/lib/geo"
)

// DefaultRadiusKm is the canonical suggestion search radius
const DefaultRadiusKm = 5.0

// Suggestion is one address candidate
type Suggestion struct {
	Label    string         `json:"label"`
	Location geo.Coordinate `json:"location"`
}

// Ranked pairs a candidate with its distance from the query position
type Ranked struct {
	Suggestion
	DistanceKm float64 `json:"distance_km"`
}

// Rank returns the candidates within radiusKm of origin, nearest first.
// radiusKm <= 0 uses DefaultRadiusKm.
func Rank(origin geo.Coordinate, candidates []Suggestion, radiusKm float64) []Ranked {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	precision := precisionForRadiusKm(radiusKm, origin.Latitude)
	cells := coveringCells(origin, precision)

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		cell := geohash.EncodeWithPrecision(c.Location.Latitude, c.Location.Longitude, precision)
		if _, ok := cells[cell]; !ok {
			continue
		}

		d := geo.Distance(origin, c.Location, geo.EarthRadiusKm)
		if d > radiusKm {
			continue
		}
		ranked = append(ranked, Ranked{Suggestion: c, DistanceKm: d})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	return ranked
}

// coveringCells is the origin's geohash cell plus its eight neighbors.
// With cell dimensions at least radiusKm, these cover the search disk.
func coveringCells(origin geo.Coordinate, precision uint) map[string]struct{} {
	center := geohash.EncodeWithPrecision(origin.Latitude, origin.Longitude, precision)

	cells := make(map[string]struct{}, 9)
	cells[center] = struct{}{}
	for _, n := range geohash.Neighbors(center) {
		cells[n] = struct{}{}
	}
	return cells
}

// precisionForRadiusKm picks the finest geohash length whose minimum
// cell dimension still covers the radius. Cell heights are fixed per
// precision, but east-west extent shrinks with cos(latitude), so the
// radius is scaled up before consulting the equatorial table.
func precisionForRadiusKm(radiusKm, latitude float64) uint {
	cosLat := math.Cos(latitude * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	radiusKm /= cosLat

	switch {
	case radiusKm <= 0.6:
		return 6
	case radiusKm <= 4.8:
		return 5
	case radiusKm <= 19.5:
		return 4
	case radiusKm <= 156:
		return 3
	case radiusKm <= 625:
		return 2
	default:
		return 1
	}
}
