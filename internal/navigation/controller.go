// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package navigation turns orientation and step events into panorama
// camera moves and link traversal.
package navigation

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/street_walker/internal/orientation"
	"github.com/relabs-tech/street_walker/internal/panorama"
	"github.com/relabs-tech/street_walker/internal/prefs"
	"github.com/relabs-tech/street_walker/internal/sensors"
	"github.com/relabs-tech/street_walker/internal/step"
)

var (
	// ErrNotReady is returned for manual moves while no panorama is attached.
	ErrNotReady = errors.New("panorama not ready")
	// ErrLocationRejected is reported when the host could not resolve a
	// manually entered position within the check delay.
	ErrLocationRejected = errors.New("no panorama at this location")
)

// State is the externally visible controller state.
type State int

const (
	Idle State = iota
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Notifier observes controller output. Calls are made with the controller
// lock held, so implementations must not call back into the controller.
type Notifier interface {
	StepCounted(count int)
	CameraAimed(cam panorama.Camera)
	LocationAccepted(loc panorama.Location)
	LocationRejected(pos panorama.LatLng, err error)
}

// LocationStore persists the last known location. *prefs.Store satisfies it.
type LocationStore interface {
	Set(key, value string) error
}

// Config holds the tunables of the controller.
type Config struct {
	Step                 step.Config
	InclinationThreshold float64
	Zoom                 float64
	AnimationDuration    time.Duration
	CheckDelay           time.Duration
	StartLocation        panorama.LatLng
}

// DefaultConfig returns the stock camera and timing parameters.
func DefaultConfig() Config {
	return Config{
		Step:                 step.DefaultConfig(),
		InclinationThreshold: orientation.DefaultInclinationThreshold,
		Zoom:                 0.5,
		AnimationDuration:    500 * time.Millisecond,
		CheckDelay:           time.Second,
	}
}

// Controller owns all mutable navigation state: the step detector, the
// last bearing, the attached host and the pending manual-move check.
type Controller struct {
	cfg       Config
	estimator *orientation.Estimator
	clock     clock.Clock
	notifier  Notifier
	store     LocationStore

	mu       sync.Mutex
	detector *step.Detector
	host     panorama.Host
	bearing  float64
	start    panorama.LatLng
	check    *clock.Timer
	checkGen uint64 // bumped whenever the pending check is replaced or cancelled
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for the manual-move check.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithNotifier registers an observer for steps, camera and location results.
func WithNotifier(n Notifier) Option {
	return func(ctl *Controller) { ctl.notifier = n }
}

// WithStore persists accepted locations.
func WithStore(s LocationStore) Option {
	return func(ctl *Controller) { ctl.store = s }
}

// New returns an Idle controller.
func New(cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.AnimationDuration <= 0 {
		cfg.AnimationDuration = def.AnimationDuration
	}
	if cfg.CheckDelay <= 0 {
		cfg.CheckDelay = def.CheckDelay
	}
	c := &Controller{
		cfg:       cfg,
		estimator: orientation.NewEstimator(cfg.InclinationThreshold),
		clock:     clock.New(),
		notifier:  nopNotifier{},
		detector:  step.NewDetector(cfg.Step),
		start:     cfg.StartLocation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach is the host's "panorama loaded" signal. The controller becomes
// Ready and sends the host to the start location.
func (c *Controller) Attach(host panorama.Host) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.host = host
	log.Printf("navigation: panorama ready, moving to %s", c.start)
	if err := host.SetPosition(c.start); err != nil {
		return fmt.Errorf("set start position: %w", err)
	}
	return nil
}

// Detach returns to Idle, e.g. when the viewer disconnects. It is a no-op
// if host is not the attached one.
func (c *Controller) Detach(host panorama.Host) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host != host {
		return
	}
	c.host = nil
	c.cancelCheck()
	log.Println("navigation: panorama detached")
}

// State reports Idle or Ready.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host == nil {
		return Idle
	}
	return Ready
}

// Steps returns the total step count.
func (c *Controller) Steps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detector.Count()
}

// Bearing returns the last estimated bearing.
func (c *Controller) Bearing() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearing
}

// HandleRotationVector estimates the pose and, when Ready, re-aims the
// camera. While Idle the re-aim is dropped.
func (c *Controller) HandleRotationVector(rv sensors.RotationVector) (orientation.Pose, error) {
	pose, err := c.estimator.Estimate(rv.Values)
	if err != nil {
		return orientation.Pose{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.bearing = pose.Bearing
	if c.host == nil {
		return pose, nil
	}

	cam := panorama.Camera{Zoom: c.cfg.Zoom, Tilt: pose.Tilt, Bearing: pose.Bearing}
	if err := c.host.AnimateTo(cam, c.cfg.AnimationDuration); err != nil {
		log.Printf("navigation: animate error: %v", err)
		return pose, nil
	}
	c.notifier.CameraAimed(cam)
	return pose, nil
}

// HandleAcceleration runs the step detector. Steps are counted in every
// state; the advance on every Nth step only happens while Ready.
func (c *Controller) HandleAcceleration(a sensors.Acceleration) (step.Event, error) {
	v := a.Vector()

	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.detector.Update(v[:])
	if err != nil || !ev.Step {
		return ev, err
	}

	c.notifier.StepCounted(ev.Count)
	if ev.Advance && c.host != nil {
		c.advance()
	}
	return ev, nil
}

// advance moves to the link closest to the current bearing. Caller holds mu.
func (c *Controller) advance() {
	loc, ok := c.host.Location()
	if !ok {
		log.Println("navigation: advance skipped, no resolved location")
		return
	}
	link, err := panorama.SelectClosest(loc.Links, c.bearing)
	if err != nil {
		log.Printf("navigation: advance skipped at %s: %v", loc.PanoID, err)
		return
	}
	log.Printf("navigation: step %d, bearing %.1f -> %s (link %.1f)", c.detector.Count(), c.bearing, link.PanoID, link.Bearing)
	if err := c.host.SetPanorama(link.PanoID); err != nil {
		log.Printf("navigation: move error: %v", err)
	}
}

// HandleLocation is called by a host whenever it resolves a location.
// Valid locations from the attached host are persisted as the new start
// point. It reports whether host is the attached one.
func (c *Controller) HandleLocation(host panorama.Host, loc panorama.Location) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host == nil || c.host != host {
		return false
	}
	if loc.Valid() {
		c.remember(loc.Position)
	}
	return true
}

// remember persists pos. Caller holds mu.
func (c *Controller) remember(pos panorama.LatLng) {
	c.start = pos
	if c.store == nil {
		return
	}
	if err := c.store.Set(prefs.KeyLocation, pos.String()); err != nil {
		log.Printf("navigation: persist location: %v", err)
	}
}

// MoveTo handles manual "lat,lng" input. Format errors are returned
// immediately. Otherwise the host is moved and, after the check delay,
// the notifier learns whether the host accepted the position.
func (c *Controller) MoveTo(input string) (panorama.LatLng, error) {
	pos, err := panorama.ParseLatLng(input)
	if err != nil {
		return panorama.LatLng{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host == nil {
		return pos, ErrNotReady
	}
	host := c.host
	if err := host.SetPosition(pos); err != nil {
		return pos, fmt.Errorf("set position: %w", err)
	}

	c.cancelCheck()
	gen := c.checkGen
	c.check = c.clock.AfterFunc(c.cfg.CheckDelay, func() {
		c.verify(gen, host, pos)
	})
	return pos, nil
}

// cancelCheck stops the pending check. A timer that already fired and is
// waiting on mu sees the bumped generation and does nothing. Caller holds mu.
func (c *Controller) cancelCheck() {
	if c.check != nil {
		c.check.Stop()
		c.check = nil
	}
	c.checkGen++
}

// verify is the one-shot check scheduled by MoveTo. Checks superseded by a
// later MoveTo or a Detach are ignored.
func (c *Controller) verify(gen uint64, host panorama.Host, pos panorama.LatLng) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.checkGen || c.host != host {
		return
	}
	c.check = nil

	loc, ok := host.Location()
	if !ok || !loc.Valid() {
		log.Printf("navigation: %s rejected by host", pos)
		c.notifier.LocationRejected(pos, ErrLocationRejected)
		return
	}
	c.remember(loc.Position)
	c.notifier.LocationAccepted(loc)
}

type nopNotifier struct{}

func (nopNotifier) StepCounted(int)                         {}
func (nopNotifier) CameraAimed(panorama.Camera)             {}
func (nopNotifier) LocationAccepted(panorama.Location)      {}
func (nopNotifier) LocationRejected(panorama.LatLng, error) {}
