// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Axis names a device axis for Remap. The high bit negates it.
type Axis int

const (
	AxisX      Axis = 0x01
	AxisY      Axis = 0x02
	AxisZ      Axis = 0x03
	AxisMinusX Axis = AxisX | 0x80
	AxisMinusY Axis = AxisY | 0x80
	AxisMinusZ Axis = AxisZ | 0x80
)

// ErrInvalidAxes is returned when Remap is asked for an unknown or repeated axis.
var ErrInvalidAxes = errors.New("remap: invalid axis pair")

// Remap rotates the coordinate system of r so that the device X axis maps
// onto x and the device Y axis onto y. The third axis is implied and keeps
// the frame right-handed. The result is r·P with P a signed permutation.
func Remap(r mat.Matrix, x, y Axis) (*mat.Dense, error) {
	if x&0x7C != 0 || y&0x7C != 0 {
		return nil, ErrInvalidAxes
	}
	if x&0x3 == 0 || y&0x3 == 0 {
		return nil, ErrInvalidAxes
	}
	if x&0x3 == y&0x3 {
		return nil, ErrInvalidAxes
	}

	z := x ^ y
	xi := int(x&0x3) - 1
	yi := int(y&0x3) - 1
	zi := int(z&0x3) - 1

	// Flip z unless (x, y, z) is an even permutation.
	if xi != (zi+1)%3 || yi != (zi+2)%3 {
		z ^= 0x80
	}

	p := mat.NewDense(3, 3, nil)
	p.Set(0, xi, sign(x))
	p.Set(1, yi, sign(y))
	p.Set(2, zi, sign(z))

	var out mat.Dense
	out.Mul(r, p)
	return &out, nil
}

func sign(a Axis) float64 {
	if a >= 0x80 {
		return -1
	}
	return 1
}
