// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/street_walker/internal/config"
	"github.com/relabs-tech/street_walker/internal/sensors"
)

// RunProducer publishes a synthetic walk on the sensor topics, standing in
// for the phone bridge during development.
func RunProducer() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("producer: config not initialized")
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.ProducerSampleInterval) * time.Millisecond
	return produce(ctx, sensors.NewMockSource(), interval, func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		return token.Error()
	}, cfg)
}

// produce polls src every interval and publishes both samples until ctx ends.
func produce(ctx context.Context, src sensors.Source, interval time.Duration, publish func(topic string, payload []byte) error, cfg *config.Config) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopping after %d samples", count)
			return nil
		case <-ticker.C:
		}

		rv, acc, err := src.Next()
		if err != nil {
			log.Printf("producer: error from mock source: %v", err)
			continue
		}

		if err := publishReading(publish, cfg.TopicRotationVector, rv.Reading()); err != nil {
			log.Printf("producer: rotation vector publish error: %v", err)
			continue
		}
		if err := publishReading(publish, cfg.TopicAccelerometer, acc.Reading()); err != nil {
			log.Printf("producer: accelerometer publish error: %v", err)
			continue
		}

		count++
		if count%50 == 0 {
			log.Printf("producer: %d samples published (accel y=%.2f)", count, acc.Y)
		}
	}
}

func publishReading(publish func(string, []byte) error, topic string, r sensors.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return publish(topic, payload)
}
