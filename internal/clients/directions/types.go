package directions

// Wire types for the Directions API JSON response. Only the fields the
// route assembler consumes are mapped.

// Response is the top-level directions payload
type Response struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Routes       []RawRoute `json:"routes"`
}

// OK reports whether the provider returned a usable result
func (r *Response) OK() bool {
	return r != nil && r.Status == "OK" && len(r.Routes) > 0
}

// RawRoute is a single routing alternative
type RawRoute struct {
	Summary          string   `json:"summary"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
	Warnings         []string `json:"warnings"`
}

// Leg is one origin-to-waypoint or waypoint-to-destination segment
type Leg struct {
	StartAddress  string    `json:"start_address"`
	EndAddress    string    `json:"end_address"`
	StartLocation LatLng    `json:"start_location"`
	EndLocation   LatLng    `json:"end_location"`
	Distance      TextValue `json:"distance"`
	Duration      TextValue `json:"duration"`
	Steps         []Step    `json:"steps"`
}

// Step is one discrete driving instruction within a leg
type Step struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         TextValue `json:"distance"`
	Duration         TextValue `json:"duration"`
	StartLocation    LatLng    `json:"start_location"`
	EndLocation      LatLng    `json:"end_location"`
	Polyline         Polyline  `json:"polyline"`
	Maneuver         string    `json:"maneuver,omitempty"`
	TravelMode       string    `json:"travel_mode"`
}

// TextValue pairs a display string with its numeric value
// (meters for distance, seconds for duration)
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// LatLng is the provider's coordinate encoding
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polyline holds an encoded geometry fragment
type Polyline struct {
	Points string `json:"points"`
}
