package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownRoute(t *testing.T) {
	// Angels Camp to Murphys, CA: ~11.0 km great-circle
	angelsCamp := Coordinate{Latitude: 38.0675, Longitude: -120.5436}
	murphys := Coordinate{Latitude: 38.1391, Longitude: -120.4561}

	km := Distance(angelsCamp, murphys, EarthRadiusKm)
	assert.InDelta(t, 11.05, km, 0.1, "distance should be approximately 11 km")

	mi := Distance(angelsCamp, murphys, EarthRadiusMi)
	assert.InDelta(t, 6.86, mi, 0.1, "distance should be approximately 6.9 miles")
}

func TestDistance_Symmetry(t *testing.T) {
	a := Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	b := Coordinate{Latitude: 34.0522, Longitude: -118.2437}

	assert.InDelta(t, Distance(a, b, EarthRadiusKm), Distance(b, a, EarthRadiusKm), 1e-9)
}

func TestDistance_IdenticalPointsZero(t *testing.T) {
	p := Coordinate{Latitude: 12.9716, Longitude: 77.5946}
	assert.Zero(t, Distance(p, p, EarthRadiusKm))

	// Nearly identical points must not produce NaN from a negative sqrt argument
	q := Coordinate{Latitude: 12.9716, Longitude: 77.59460000000001}
	d := Distance(p, q, EarthRadiusKm)
	assert.False(t, d != d, "distance must not be NaN")
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestDistance_TriangleSanity(t *testing.T) {
	// Three roughly collinear points along a meridian
	a := Coordinate{Latitude: 37.00, Longitude: -122.0}
	b := Coordinate{Latitude: 37.05, Longitude: -122.0}
	c := Coordinate{Latitude: 37.10, Longitude: -122.0}

	ac := Distance(a, c, EarthRadiusKm)
	abbc := Distance(a, b, EarthRadiusKm) + Distance(b, c, EarthRadiusKm)
	assert.InDelta(t, ac, abbc, 0.001)
}

func TestPathLength(t *testing.T) {
	a := Coordinate{Latitude: 37.00, Longitude: -122.0}
	b := Coordinate{Latitude: 37.05, Longitude: -122.0}
	c := Coordinate{Latitude: 37.10, Longitude: -122.0}

	total := PathLength([]Coordinate{a, b, c}, EarthRadiusKm)
	expected := Distance(a, b, EarthRadiusKm) + Distance(b, c, EarthRadiusKm)
	assert.InDelta(t, expected, total, 1e-9)

	assert.Zero(t, PathLength(nil, EarthRadiusKm))
	assert.Zero(t, PathLength([]Coordinate{a}, EarthRadiusKm))
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		want  bool
	}{
		{"valid", Coordinate{Latitude: 38.0, Longitude: -120.0}, true},
		{"lat too high", Coordinate{Latitude: 91, Longitude: 0}, false},
		{"lat too low", Coordinate{Latitude: -91, Longitude: 0}, false},
		{"lon too high", Coordinate{Latitude: 0, Longitude: 181}, false},
		{"lon too low", Coordinate{Latitude: 0, Longitude: -181}, false},
		{"boundary", Coordinate{Latitude: 90, Longitude: -180}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coord.Valid())
		})
	}
}
