// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/street_walker/internal/config"
	"github.com/relabs-tech/street_walker/internal/gps"
	"github.com/relabs-tech/street_walker/internal/navigation"
	"github.com/relabs-tech/street_walker/internal/panorama"
	"github.com/relabs-tech/street_walker/internal/prefs"
	"github.com/relabs-tech/street_walker/internal/sensors"
	"github.com/relabs-tech/street_walker/internal/step"
)

// stepsMessage is the TOPIC_STEPS payload.
type stepsMessage struct {
	Count int `json:"count"`
}

// locationMessage is the TOPIC_LOCATION payload.
type locationMessage struct {
	PanoID string  `json:"pano_id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// walker glues the MQTT sensor topics, the navigation controller and the
// connected viewers together. It is also the controller's Notifier, whose
// methods run under the controller lock and so must not call back into it.
type walker struct {
	cfg     *config.Config
	ctl     *navigation.Controller
	hub     *viewerHub
	publish func(topic string, retained bool, payload []byte)
	steps   atomic.Int64 // last count seen by StepCounted
}

func newWalker(cfg *config.Config, start panorama.LatLng, store navigation.LocationStore, publish func(string, bool, []byte)) *walker {
	w := &walker{
		cfg:     cfg,
		hub:     newViewerHub(),
		publish: publish,
	}
	w.ctl = navigation.New(controllerConfig(cfg, start),
		navigation.WithNotifier(w),
		navigation.WithStore(store),
	)
	return w
}

func controllerConfig(cfg *config.Config, start panorama.LatLng) navigation.Config {
	return navigation.Config{
		Step: step.Config{
			Smoothing:    cfg.StepSmoothing,
			BandLow:      cfg.StepBandLow,
			BandHigh:     cfg.StepBandHigh,
			StepsPerMove: cfg.StepsToMove,
		},
		InclinationThreshold: cfg.InclinationThreshold,
		Zoom:                 cfg.CameraZoom,
		AnimationDuration:    cfg.CameraAnimation(),
		CheckDelay:           cfg.LocationCheckDelay(),
		StartLocation:        start,
	}
}

func (w *walker) publishJSON(topic string, retained bool, v any) {
	if topic == "" || w.publish == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("walker: marshal error for %s: %v", topic, err)
		return
	}
	w.publish(topic, retained, payload)
}

func (w *walker) handleRotationMessage(payload []byte) {
	rv, err := sensors.DecodeRotationVector(payload)
	if err != nil {
		log.Printf("walker: rotation vector decode error: %v", err)
		return
	}
	if _, err := w.ctl.HandleRotationVector(rv); err != nil {
		log.Printf("walker: rotation vector dropped: %v", err)
	}
}

func (w *walker) handleAccelerationMessage(payload []byte) {
	a, err := sensors.DecodeAcceleration(payload)
	if err != nil {
		log.Printf("walker: accelerometer decode error: %v", err)
		return
	}
	if _, err := w.ctl.HandleAcceleration(a); err != nil {
		log.Printf("walker: accelerometer sample dropped: %v", err)
	}
}

func (w *walker) publishLocation(loc panorama.Location) {
	w.publishJSON(w.cfg.TopicLocation, true, locationMessage{
		PanoID: loc.PanoID,
		Lat:    loc.Position.Lat,
		Lng:    loc.Position.Lng,
	})
}

// StepCounted implements navigation.Notifier.
func (w *walker) StepCounted(count int) {
	w.steps.Store(int64(count))
	w.publishJSON(w.cfg.TopicSteps, false, stepsMessage{Count: count})
	w.hub.status(count, "", nil)
}

// CameraAimed implements navigation.Notifier.
func (w *walker) CameraAimed(cam panorama.Camera) {
	w.publishJSON(w.cfg.TopicCamera, false, cam)
}

// LocationAccepted implements navigation.Notifier.
func (w *walker) LocationAccepted(loc panorama.Location) {
	log.Printf("walker: moved to %s (%s)", loc.Position, loc.PanoID)
	w.publishLocation(loc)
	w.hub.status(int(w.steps.Load()), "moved to "+loc.Position.String(), nil)
}

// LocationRejected implements navigation.Notifier.
func (w *walker) LocationRejected(pos panorama.LatLng, err error) {
	log.Printf("walker: move to %s rejected: %v", pos, err)
	w.hub.status(int(w.steps.Load()), "cannot move to "+pos.String(), err)
}

// resolveStartLocation picks the first position that parses from: the
// persisted PREF_LOC, a GPS fix (when fix is non-nil) and DEFAULT_LOCATION.
func resolveStartLocation(ctx context.Context, cfg *config.Config, store *prefs.Store, fix func(context.Context) (panorama.LatLng, error)) (panorama.LatLng, error) {
	if s, ok := store.Get(prefs.KeyLocation); ok {
		pos, err := panorama.ParseLatLng(s)
		if err == nil {
			log.Printf("walker: start location %s from prefs", pos)
			return pos, nil
		}
		log.Printf("walker: ignoring persisted location %q: %v", s, err)
	}

	if fix != nil {
		pos, err := fix(ctx)
		if err == nil {
			log.Printf("walker: start location %s from GPS", pos)
			return pos, nil
		}
		log.Printf("walker: no GPS start location: %v", err)
	}

	pos, err := panorama.ParseLatLng(cfg.DefaultLocation)
	if err != nil {
		return panorama.LatLng{}, fmt.Errorf("DEFAULT_LOCATION: %w", err)
	}
	log.Printf("walker: start location %s from config default", pos)
	return pos, nil
}

// serialFix reads the configured GPS receiver until the first valid fix.
func serialFix(cfg *config.Config) func(context.Context) (panorama.LatLng, error) {
	if cfg.GPSSerialPort == "" {
		return nil
	}
	return func(ctx context.Context) (panorama.LatLng, error) {
		port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return panorama.LatLng{}, err
		}
		defer port.Close()

		ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.GPSFixTimeoutMs)*time.Millisecond)
		defer cancel()

		// closing the port unblocks a pending read once the timeout fires
		go func() {
			<-ctx.Done()
			port.Close()
		}()

		f, err := gps.FirstValidFix(ctx, port)
		if err != nil {
			return panorama.LatLng{}, err
		}
		return f.Position(), nil
	}
}

// RunWalker runs the navigation process until SIGINT/SIGTERM.
func RunWalker() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWalker(ctx, config.Get())
}

func runWalker(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("walker: config not initialized")
	}

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return fmt.Errorf("walker: %w", err)
	}

	start, err := resolveStartLocation(ctx, cfg, store, serialFix(cfg))
	if err != nil {
		return fmt.Errorf("walker: %w", err)
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWalker)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("walker: mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("walker: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Publishing happens under the controller lock, so never wait on the token.
	w := newWalker(cfg, start, store, func(topic string, retained bool, payload []byte) {
		client.Publish(topic, 0, retained, payload)
	})

	// 2) Subscribe to the sensor topics
	subs := map[string]func([]byte){
		cfg.TopicRotationVector: w.handleRotationMessage,
		cfg.TopicAccelerometer:  w.handleAccelerationMessage,
	}
	for topic, handle := range subs {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			handle(msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("walker: subscribe %s: %w", topic, token.Error())
		}
		log.Printf("walker: subscribed to %s", topic)
	}
	defer func() {
		if token := client.Unsubscribe(cfg.TopicRotationVector, cfg.TopicAccelerometer); token.WaitTimeout(time.Second) && token.Error() != nil {
			log.Printf("walker: unsubscribe error: %v", token.Error())
		}
		log.Println("walker: sensor topics unsubscribed")
	}()

	// 3) Web server: viewer websocket, manual location, static viewer page
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: newWebMux(w, cfg.WebRoot),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("walker: web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("walker: shutting down")
	case err := <-errCh:
		return fmt.Errorf("walker: web server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("walker: web server shutdown error: %v", err)
	}
	return nil
}
