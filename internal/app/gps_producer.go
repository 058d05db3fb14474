// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/street_walker/internal/config"
	"github.com/relabs-tech/street_walker/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes each RMC fix as JSON to TOPIC_GPS.
func RunGPSProducer() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("gps: config not initialized")
	}
	if cfg.GPSSerialPort == "" {
		return fmt.Errorf("gps: GPS_SERIAL_PORT is not set")
	}

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGPS)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("GPS producer connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Open GPS serial port ----
	port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", cfg.GPSSerialPort, cfg.GPSBaudRate)

	return publishFixes(port, func(payload []byte) error {
		token := client.Publish(cfg.TopicGPS, 0, true, payload)
		token.Wait()
		return token.Error()
	})
}

// publishFixes publishes every fix read from r until the stream ends.
func publishFixes(r io.Reader, publish func([]byte) error) error {
	sc := gps.NewScanner(r)
	for {
		fix, err := sc.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}

		payload, err := json.Marshal(fix)
		if err != nil {
			log.Printf("GPS JSON marshal error: %v", err)
			continue
		}
		if err := publish(payload); err != nil {
			log.Printf("GPS publish error: %v", err)
			continue
		}
		log.Printf("published GPS fix: %+v", fix)
	}
}
