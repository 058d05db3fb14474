// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultInclinationThreshold is the scaled inclination (acos(R22)*100)
// above which the reference axes are swapped.
const DefaultInclinationThreshold = 25.0

var (
	// ErrShortSample is returned for rotation vectors with fewer than 3 values.
	ErrShortSample = errors.New("rotation vector needs at least 3 values")
	// ErrNonFinite is returned when the rotation vector contains NaN or Inf.
	ErrNonFinite = errors.New("rotation vector contains non-finite values")
)

// Pose is the camera-facing orientation derived from one rotation vector.
type Pose struct {
	Bearing     float64 `json:"bearing"`     // azimuth, degrees in [0, 360)
	Tilt        float64 `json:"tilt"`        // roll, degrees in [-90, 90]
	Inclination float64 `json:"inclination"` // acos(R22)*100
	Remapped    bool    `json:"remapped"`    // inclination exceeded the threshold
}

// Estimator turns rotation-vector samples into bearing and tilt.
// It is stateless apart from its threshold and safe for concurrent use.
type Estimator struct {
	threshold float64
}

// NewEstimator returns an Estimator using the given inclination threshold.
// A non-positive threshold selects DefaultInclinationThreshold.
func NewEstimator(threshold float64) *Estimator {
	if threshold <= 0 {
		threshold = DefaultInclinationThreshold
	}
	return &Estimator{threshold: threshold}
}

// Estimate computes the pose for one rotation-vector sample.
//
// Near-level devices hit gimbal lock on the default axes, so when the
// inclination is above the threshold the matrix is remapped (X, Z) before
// extracting azimuth, and the roll matrix is remapped (Y, -X) on top of
// it; otherwise roll comes from a (Y, Z) remap of the raw matrix.
func (e *Estimator) Estimate(v []float64) (Pose, error) {
	if len(v) < 3 {
		return Pose{}, ErrShortSample
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Pose{}, ErrNonFinite
		}
	}

	r := RotationMatrix(v)
	incl := Inclination(r)
	remapped := incl > e.threshold

	if remapped {
		var err error
		if r, err = Remap(r, AxisX, AxisZ); err != nil {
			return Pose{}, fmt.Errorf("azimuth remap: %w", err)
		}
	}
	azimuth, _, _ := Angles(r)

	rollX, rollY := AxisY, AxisZ
	if remapped {
		rollY = AxisMinusX
	}
	rollMatrix, err := Remap(r, rollX, rollY)
	if err != nil {
		return Pose{}, fmt.Errorf("roll remap: %w", err)
	}
	_, _, roll := Angles(rollMatrix)

	return Pose{
		Bearing:     NormalizeBearing(degrees(azimuth)),
		Tilt:        ClampTilt(degrees(roll)),
		Inclination: incl,
		Remapped:    remapped,
	}, nil
}

// RotationMatrix converts a rotation vector (x, y, z[, w[, accuracy]]) into
// a 3x3 rotation matrix. When w is absent it is recovered from the unit
// quaternion constraint.
func RotationMatrix(v []float64) *mat.Dense {
	q1, q2, q3 := v[0], v[1], v[2]
	var q0 float64
	if len(v) >= 4 {
		q0 = v[3]
	} else {
		q0 = 1 - q1*q1 - q2*q2 - q3*q3
		if q0 > 0 {
			q0 = math.Sqrt(q0)
		} else {
			q0 = 0
		}
	}

	sqQ1 := 2 * q1 * q1
	sqQ2 := 2 * q2 * q2
	sqQ3 := 2 * q3 * q3
	q1q2 := 2 * q1 * q2
	q3q0 := 2 * q3 * q0
	q1q3 := 2 * q1 * q3
	q2q0 := 2 * q2 * q0
	q2q3 := 2 * q2 * q3
	q1q0 := 2 * q1 * q0

	return mat.NewDense(3, 3, []float64{
		1 - sqQ2 - sqQ3, q1q2 - q3q0, q1q3 + q2q0,
		q1q2 + q3q0, 1 - sqQ1 - sqQ3, q2q3 - q1q0,
		q1q3 - q2q0, q2q3 + q1q0, 1 - sqQ1 - sqQ2,
	})
}

// Inclination returns acos(R22) scaled by 100. R22 is clamped to [-1, 1]
// so slightly non-orthogonal matrices do not produce NaN.
func Inclination(r mat.Matrix) float64 {
	return math.Acos(clamp(r.At(2, 2), -1, 1)) * 100
}

// Angles extracts azimuth, pitch and roll (radians) from a rotation matrix.
func Angles(r mat.Matrix) (azimuth, pitch, roll float64) {
	azimuth = math.Atan2(r.At(0, 1), r.At(1, 1))
	pitch = math.Asin(clamp(-r.At(2, 1), -1, 1))
	roll = math.Atan2(-r.At(2, 0), r.At(2, 2))
	return azimuth, pitch, roll
}

// NormalizeBearing wraps degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}

// ClampTilt limits degrees to [-90, 90].
func ClampTilt(deg float64) float64 {
	return clamp(deg, -90, 90)
}

func degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
