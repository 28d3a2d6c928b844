package route

import (
	"io"

	kml "github.com/twpayne/go-kml/v2"
)

// WriteKML renders the route path as a KML document with a single
// LineString placemark, suitable for sharing or loading into map tools.
func (r *Route) WriteKML(w io.Writer) error {
	coords := make([]kml.Coordinate, len(r.Path))
	for i, p := range r.Path {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}

	name := r.Summary
	if name == "" {
		name = "Route " + r.ID
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(name),
			kml.Placemark(
				kml.Name("Route path"),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
		),
	)

	return doc.WriteIndent(w, "", "  ")
}
