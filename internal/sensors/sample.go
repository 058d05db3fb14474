// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShortSample is returned when a payload carries fewer than three values.
var ErrShortSample = errors.New("sensor sample needs at least 3 values")

// Reading is the wire shape of a single sensor event, as published on MQTT
// by the phone bridge or the synthetic producer.
type Reading struct {
	Values    []float64 `json:"values"`
	Timestamp int64     `json:"timestamp"` // nanoseconds
	Accuracy  int       `json:"accuracy"`  // ignored by the pipeline
}

// RotationVector is a fused attitude sample: x, y, z and optionally w
// (and a heading accuracy as 5th element on some devices).
type RotationVector struct {
	Values    []float64
	Timestamp int64
}

// Acceleration is a raw 3-axis accelerometer sample in m/s².
type Acceleration struct {
	X, Y, Z   float64
	Timestamp int64
}

// Vector returns the sample as a fixed 3-element array.
func (a Acceleration) Vector() [3]float64 {
	return [3]float64{a.X, a.Y, a.Z}
}

// DecodeRotationVector parses a JSON Reading into a RotationVector.
func DecodeRotationVector(payload []byte) (RotationVector, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return RotationVector{}, fmt.Errorf("rotation vector: %w", err)
	}
	if len(r.Values) < 3 {
		return RotationVector{}, fmt.Errorf("rotation vector: %w", ErrShortSample)
	}
	return RotationVector{Values: r.Values, Timestamp: r.Timestamp}, nil
}

// DecodeAcceleration parses a JSON Reading into an Acceleration.
// Extra values beyond the third are ignored.
func DecodeAcceleration(payload []byte) (Acceleration, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Acceleration{}, fmt.Errorf("accelerometer: %w", err)
	}
	if len(r.Values) < 3 {
		return Acceleration{}, fmt.Errorf("accelerometer: %w", ErrShortSample)
	}
	return Acceleration{X: r.Values[0], Y: r.Values[1], Z: r.Values[2], Timestamp: r.Timestamp}, nil
}

// Reading converts the sample back to its wire shape.
func (v RotationVector) Reading() Reading {
	return Reading{Values: v.Values, Timestamp: v.Timestamp}
}

// Reading converts the sample back to its wire shape.
func (a Acceleration) Reading() Reading {
	return Reading{Values: []float64{a.X, a.Y, a.Z}, Timestamp: a.Timestamp}
}
