// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package panorama

import (
	"errors"
	"math"
)

// ErrNoLinks is returned by SelectClosest for an empty link set.
var ErrNoLinks = errors.New("panorama has no outgoing links")

// AngularDistance is the shorter arc between two bearings, in [0, 180].
func AngularDistance(a, b float64) float64 {
	diff := a - b
	n := diff - 360*math.Floor(diff/360)
	if n < 180 {
		return n
	}
	return 360 - n
}

// SelectClosest returns the link whose bearing is nearest to bearing.
// Ties go to the first link in slice order.
func SelectClosest(links []Link, bearing float64) (Link, error) {
	if len(links) == 0 {
		return Link{}, ErrNoLinks
	}
	best := links[0]
	bestDist := 360.0
	for _, l := range links {
		if d := AngularDistance(bearing, l.Bearing); d < bestDist {
			bestDist = d
			best = l
		}
	}
	return best, nil
}
