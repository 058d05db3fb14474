// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package panorama

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingSeparator is returned for location text without a comma.
	ErrMissingSeparator = errors.New("location must be \"lat,lng\"")
	// ErrInvalidCoordinate is returned when either half is not a number.
	ErrInvalidCoordinate = errors.New("location coordinate is not a number")
)

// LatLng is a WGS84 position in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the position as "lat,lng", the persisted form.
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// ParseLatLng parses "lat,lng". Spaces anywhere are ignored, so
// "48.8566, 2.3522" is accepted while "48.8566 2.3522" is not.
func ParseLatLng(s string) (LatLng, error) {
	s = strings.ReplaceAll(s, " ", "")
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return LatLng{}, ErrMissingSeparator
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, lngStr)
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

// Link is a directional connector from the current panorama to a neighbour.
type Link struct {
	PanoID  string  `json:"pano_id"`
	Bearing float64 `json:"bearing"` // degrees
}

// Location is what the host resolved for the last requested position.
// An empty PanoID means the position has no panorama.
type Location struct {
	PanoID   string `json:"pano_id"`
	Position LatLng `json:"position"`
	Links    []Link `json:"links"`
}

// Valid reports whether the host resolved a panorama.
func (l Location) Valid() bool { return l.PanoID != "" }

// Camera is the viewer pose: zoom, tilt in [-90, 90] and bearing in [0, 360).
type Camera struct {
	Zoom    float64 `json:"zoom"`
	Tilt    float64 `json:"tilt"`
	Bearing float64 `json:"bearing"`
}

// Host is the panorama viewer. Every call is fire-and-forget: the host
// applies it asynchronously and later calls may supersede earlier ones.
// Implementations must not call back into the caller synchronously.
type Host interface {
	// SetPosition moves to the panorama nearest to pos.
	SetPosition(pos LatLng) error
	// SetPanorama moves to a panorama by id.
	SetPanorama(panoID string) error
	// AnimateTo re-aims the camera over d.
	AnimateTo(cam Camera, d time.Duration) error
	// Location returns the last resolved location; false when none.
	Location() (Location, bool)
}
