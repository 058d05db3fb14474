// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/street_walker/internal/config"
	"github.com/relabs-tech/street_walker/internal/panorama"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// DisplayData holds the latest walker output for the OLED.
type DisplayData struct {
	mu sync.RWMutex

	steps     int
	haveSteps bool

	camera     panorama.Camera
	haveCamera bool

	location     locationMessage
	haveLocation bool
}

// displaySnapshot is a lock-free copy of DisplayData.
type displaySnapshot struct {
	steps        int
	haveSteps    bool
	camera       panorama.Camera
	haveCamera   bool
	location     locationMessage
	haveLocation bool
}

func (d *DisplayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		steps:        d.steps,
		haveSteps:    d.haveSteps,
		camera:       d.camera,
		haveCamera:   d.haveCamera,
		location:     d.location,
		haveLocation: d.haveLocation,
	}
}

func (d *DisplayData) handleSteps(payload []byte) error {
	var s stepsMessage
	if err := json.Unmarshal(payload, &s); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps, d.haveSteps = s.Count, true
	return nil
}

func (d *DisplayData) handleCamera(payload []byte) error {
	var c panorama.Camera
	if err := json.Unmarshal(payload, &c); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.camera, d.haveCamera = c, true
	return nil
}

func (d *DisplayData) handleLocation(payload []byte) error {
	var l locationMessage
	if err := json.Unmarshal(payload, &l); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location, d.haveLocation = l, true
	return nil
}

// RunDisplay drives an SSD1306 OLED with the step counter, camera bearing
// and current location.
func RunDisplay() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("display: config not initialized")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	handlers := map[string]func([]byte) error{
		cfg.TopicSteps:    data.handleSteps,
		cfg.TopicCamera:   data.handleCamera,
		cfg.TopicLocation: data.handleLocation,
	}
	for topic, handle := range handlers {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := handle(msg.Payload()); err != nil {
				log.Printf("display: %s unmarshal error: %v", msg.Topic(), err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
		}
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		if err := dev.Draw(dev.Bounds(), renderStatus(data.snapshot()), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newDrawer() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// renderStatus draws one frame: steps, bearing/tilt and location.
func renderStatus(s displaySnapshot) *image1bit.VerticalLSB {
	img, drawer := newDrawer()

	if !s.haveSteps && !s.haveCamera && !s.haveLocation {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Street Walker")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawString(fmt.Sprintf("Steps: %d", s.steps))

	if s.haveCamera {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString(fmt.Sprintf("Hdg %5.1f Tilt %3.0f", s.camera.Bearing, s.camera.Tilt))
	}

	if s.haveLocation {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString(formatCoord(s.location.Lat, "N", "S"))
		drawer.Dot = fixed.P(0, 52)
		drawer.DrawString(formatCoord(s.location.Lng, "E", "W"))
	}

	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newDrawer()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Street Walker")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Start walking")

	return img
}

func formatCoord(v float64, pos, neg string) string {
	dir := pos
	if v < 0 {
		dir = neg
		v = -v
	}
	return fmt.Sprintf("%.4f%s", v, dir)
}
