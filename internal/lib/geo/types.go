package geo

// Coordinate represents a geographic point
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within the WGS84 range
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Earth radius constants. Callers pick the unit system: the app displays
// miles for trip summaries but all turn-proximity math uses kilometers.
const (
	EarthRadiusKm = 6371.0
	EarthRadiusMi = 3959.0
)
