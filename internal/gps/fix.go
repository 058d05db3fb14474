package gps

import "github.com/relabs-tech/street_walker/internal/panorama"

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "06/12/25"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}

// Valid reports whether the receiver had a position lock.
func (f Fix) Valid() bool { return f.Validity == "A" }

// Position returns the fix as a panorama start location.
func (f Fix) Position() panorama.LatLng {
	return panorama.LatLng{Lat: f.Latitude, Lng: f.Longitude}
}
