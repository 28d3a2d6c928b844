package route

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/clients/directions"
	"github.com/rideline/navigator/internal/lib/geo"
	"github.com/rideline/navigator/internal/lib/polyline"
)

// Assembler flattens directions provider responses into routes
type Assembler struct {
	logger *zap.Logger
}

// NewAssembler creates a route assembler
func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Assemble builds a Route from a raw directions response. A nil or
// non-OK response produces the degraded straight-line route: navigation
// is never blocked outright by a provider outage.
//
// Per-step polyline fragments that fail to decode are skipped; if none
// decoded, the route-level overview polyline is used as the path.
func (a *Assembler) Assemble(raw *directions.Response, origin, destination geo.Coordinate) *Route {
	if !raw.OK() {
		return a.degraded(origin, destination)
	}

	r := &Route{
		ID:          uuid.New().String(),
		Origin:      origin,
		Destination: destination,
	}

	rawRoute := raw.Routes[0]
	r.Summary = rawRoute.Summary

	for _, leg := range rawRoute.Legs {
		for _, step := range leg.Steps {
			points, err := polyline.Decode(step.Polyline.Points)
			if err != nil {
				// Treat a malformed fragment the same as an empty one
				a.logger.Warn("skipping undecodable step polyline",
					zap.String("instruction", step.HTMLInstructions),
					zap.Error(err))
			} else {
				r.Path = append(r.Path, points...)
			}

			r.DistanceMeters += step.Distance.Value
			r.DurationSeconds += step.Duration.Value

			r.Steps = append(r.Steps, ManeuverStep{
				Instruction:  StripMarkup(step.HTMLInstructions),
				DistanceText: step.Distance.Text,
				DurationText: step.Duration.Text,
				Maneuver:     step.Maneuver,
				EndLocation:  geo.Coordinate{Latitude: step.EndLocation.Lat, Longitude: step.EndLocation.Lng},
			})
		}
	}

	if len(r.Path) == 0 {
		points, err := polyline.Decode(rawRoute.OverviewPolyline.Points)
		if err != nil || len(points) == 0 {
			a.logger.Warn("no decodable geometry in directions response, degrading to straight line")
			r.Path = []geo.Coordinate{origin, destination}
			r.IsDegraded = true
			return r
		}
		r.Path = points
	}

	return r
}

// degraded returns the straight-line fallback route
func (a *Assembler) degraded(origin, destination geo.Coordinate) *Route {
	return &Route{
		ID:          uuid.New().String(),
		Origin:      origin,
		Destination: destination,
		Path:        []geo.Coordinate{origin, destination},
		IsDegraded:  true,
	}
}

// StripMarkup removes tag-like substrings from an HTML-ish instruction
// and decodes the non-breaking-space entity the provider emits between
// distance units.
func StripMarkup(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(strings.ReplaceAll(b.String(), "&nbsp;", " "))
}
