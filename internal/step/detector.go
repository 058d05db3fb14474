// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package step counts walking-in-place steps from accelerometer samples.
//
// A step is registered whenever the Y component of the smoothed gravity
// estimate moves by an amount inside a closed band between two samples.
// There is no debounce: oscillation that stays inside the band is counted
// on every sample.
package step

import "errors"

// ErrShortSample is returned for samples with fewer than 3 axes.
var ErrShortSample = errors.New("acceleration sample needs 3 values")

// Config controls detection. Zero values select the defaults.
type Config struct {
	// Smoothing is the exponential moving average coefficient applied to
	// the gravity estimate. The default of 1.0 makes the estimate track the
	// raw input exactly.
	Smoothing float64
	// BandLow and BandHigh bound |ΔY| for a step, both inclusive.
	BandLow  float64
	BandHigh float64
	// StepsPerMove is the advance period in steps.
	StepsPerMove int
}

// DefaultConfig returns the stock detection parameters.
func DefaultConfig() Config {
	return Config{
		Smoothing:    1.0,
		BandLow:      0.5,
		BandHigh:     1.0,
		StepsPerMove: 16,
	}
}

// Event is the outcome of one sample.
type Event struct {
	Step    bool // a step was registered on this sample
	Count   int  // total steps so far
	Advance bool // Count just reached a multiple of StepsPerMove
	Delta   float64
}

// Detector holds the gravity estimate, the previous Y reading and the
// step counter. It is not safe for concurrent use.
type Detector struct {
	cfg     Config
	gravity [3]float64
	prevY   float64
	count   int
}

// NewDetector returns a Detector with zeroed state.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Smoothing <= 0 {
		cfg.Smoothing = def.Smoothing
	}
	if cfg.BandLow == 0 && cfg.BandHigh == 0 {
		cfg.BandLow, cfg.BandHigh = def.BandLow, def.BandHigh
	}
	if cfg.StepsPerMove <= 0 {
		cfg.StepsPerMove = def.StepsPerMove
	}
	return &Detector{cfg: cfg}
}

// Update feeds one 3-axis sample and reports whether it produced a step.
func (d *Detector) Update(values []float64) (Event, error) {
	if len(values) < 3 {
		return Event{Count: d.count}, ErrShortSample
	}

	for i := range d.gravity {
		d.gravity[i] += d.cfg.Smoothing * (values[i] - d.gravity[i])
	}

	y := d.gravity[1]
	delta := d.prevY - y
	if delta < 0 {
		delta = -delta
	}
	d.prevY = y

	ev := Event{Count: d.count, Delta: delta}
	if delta >= d.cfg.BandLow && delta <= d.cfg.BandHigh {
		d.count++
		ev.Step = true
		ev.Count = d.count
		ev.Advance = d.count%d.cfg.StepsPerMove == 0
	}
	return ev, nil
}

// Count returns the number of steps registered so far.
func (d *Detector) Count() int { return d.count }

// Gravity returns the current gravity estimate.
func (d *Detector) Gravity() [3]float64 { return d.gravity }

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }
