// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/street_walker/internal/config"
	"github.com/relabs-tech/street_walker/internal/gps"
	"github.com/relabs-tech/street_walker/internal/panorama"
)

// RunConsoleMQTT prints the walker's output topics until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("console: config not initialized")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	lines := map[string]func([]byte) (string, error){
		cfg.TopicCamera:   formatCamera,
		cfg.TopicSteps:    formatSteps,
		cfg.TopicLocation: formatLocation,
		cfg.TopicGPS:      formatGPS,
	}
	for topic, format := range lines {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
				return
			}
			fmt.Println(line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", topic)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatCamera(payload []byte) (string, error) {
	var c panorama.Camera
	if err := json.Unmarshal(payload, &c); err != nil {
		return "", err
	}
	return fmt.Sprintf("[CAM ]  BEARING=%6.2f  TILT=%6.2f  ZOOM=%.2f", c.Bearing, c.Tilt, c.Zoom), nil
}

func formatSteps(payload []byte) (string, error) {
	var s stepsMessage
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", err
	}
	return fmt.Sprintf("[STEP]  COUNT=%d", s.Count), nil
}

func formatLocation(payload []byte) (string, error) {
	var l locationMessage
	if err := json.Unmarshal(payload, &l); err != nil {
		return "", err
	}
	return fmt.Sprintf("[LOC ]  lat=%.6f lng=%.6f pano=%s", l.Lat, l.Lng, l.PanoID), nil
}

func formatGPS(payload []byte) (string, error) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[GPS ]  time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s",
		f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
	), nil
}
