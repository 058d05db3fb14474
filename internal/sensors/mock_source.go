// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"
)

const gravity = 9.81

// Source is anything that can provide paired samples over time.
type Source interface {
	Next() (RotationVector, Acceleration, error)
}

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a synthetic walker: the device is held upright,
// slowly turns around the vertical axis and bobs on Y at step cadence.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (RotationVector, Acceleration, error) {
	t := m.now()
	rv, acc := sampleAt(t.Sub(m.start).Seconds())
	rv.Timestamp = t.UnixNano()
	acc.Timestamp = t.UnixNano()
	return rv, acc, nil
}

// sampleAt returns the synthetic sample elapsed seconds into the walk.
func sampleAt(elapsed float64) (RotationVector, Acceleration) {
	// Yaw sweeps ±60° over ~40s; the device is pitched up 90° so the
	// screen faces the walker.
	yaw := (60 * math.Sin(elapsed*2*math.Pi/40)) * math.Pi / 180
	pitch := math.Pi / 2

	// q = yaw(Z) * pitch(X)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	rv := RotationVector{Values: []float64{
		cy * sp, // x
		sy * sp, // y
		sy * cp, // z
		cy * cp, // w
	}}

	// ~1.8 steps per second; amplitude keeps sample-to-sample ΔY
	// around the detection band at a 200ms sampling interval.
	bob := 0.6 * math.Sin(elapsed*2*math.Pi*1.8)
	acc := Acceleration{
		X: 0.05 * math.Sin(elapsed*3.1),
		Y: gravity + bob,
		Z: 0.3 * math.Cos(elapsed*2*math.Pi*1.8),
	}
	return rv, acc
}
