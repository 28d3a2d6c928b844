// Package route assembles raw multi-leg directions data into a single
// ordered maneuver sequence and continuous path for navigation.
package route

import (
	"fmt"
	"math"

	"github.com/rideline/navigator/internal/lib/geo"
)

const metersPerMile = 1609.34

// ManeuverStep is one discrete driving instruction with its end coordinate
type ManeuverStep struct {
	Instruction  string         `json:"instruction"`
	DistanceText string         `json:"distance_text"`
	DurationText string         `json:"duration_text"`
	Maneuver     string         `json:"maneuver,omitempty"`
	EndLocation  geo.Coordinate `json:"end_location"`
}

// Route is an assembled navigation route. Immutable after assembly; safe
// to share between the tracker and the presentation layer.
type Route struct {
	ID              string           `json:"id"`
	Origin          geo.Coordinate   `json:"origin"`
	Destination     geo.Coordinate   `json:"destination"`
	Steps           []ManeuverStep   `json:"steps"`
	Path            []geo.Coordinate `json:"path"`
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	Summary         string           `json:"summary,omitempty"`

	// IsDegraded marks the straight-line fallback used when the
	// directions provider was unavailable
	IsDegraded bool `json:"is_degraded"`
}

// DistanceMiles converts the internal meter total for display
func (r *Route) DistanceMiles() float64 {
	return r.DistanceMeters / metersPerMile
}

// DurationHoursMinutes splits the internal second total for display
func (r *Route) DurationHoursMinutes() (hours, minutes int) {
	total := int(math.Round(r.DurationSeconds / 60))
	return total / 60, total % 60
}

// DurationText formats the duration the way step cards show it
func (r *Route) DurationText() string {
	h, m := r.DurationHoursMinutes()
	if h == 0 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%d hr %d min", h, m)
}
