// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDWalker   string
	MQTTClientIDProducer string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicRotationVector string
	TopicAccelerometer  string
	TopicCamera         string
	TopicSteps          string
	TopicLocation       string
	TopicGPS            string

	// Step detection
	StepSmoothing float64 // gravity EMA coefficient; 1.0 tracks the raw input
	StepBandLow   float64 // minimum |ΔY| counted as a step (inclusive)
	StepBandHigh  float64 // maximum |ΔY| counted as a step (inclusive)
	StepsToMove   int     // advance the panorama every N steps

	// Orientation
	InclinationThreshold float64 // acos(R22)*100 above which axes are remapped

	// Camera
	CameraZoom        float64
	CameraAnimationMs int // milliseconds

	// Location
	DefaultLocation      string // "lat,lng" used when nothing is persisted
	PrefsPath            string
	LocationCheckDelayMs int // milliseconds

	// GPS
	GPSSerialPort   string // empty disables the GPS start-location seed
	GPSBaudRate     int
	GPSFixTimeoutMs int // milliseconds

	// Timing
	ProducerSampleInterval int // milliseconds

	// Web Server
	WebServerPort int
	WebRoot       string

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every key set to its built-in value.
// Load starts from these values, so a config file only lists overrides.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDWalker:   "street-walker",
		MQTTClientIDProducer: "street-walker-producer",
		MQTTClientIDGPS:      "street-walker-gps",
		MQTTClientIDConsole:  "street-walker-console",
		MQTTClientIDDisplay:  "street-walker-display",

		TopicRotationVector: "walker/sensor/rotation_vector",
		TopicAccelerometer:  "walker/sensor/accelerometer",
		TopicCamera:         "walker/camera",
		TopicSteps:          "walker/steps",
		TopicLocation:       "walker/location",
		TopicGPS:            "walker/gps",

		StepSmoothing: 1.0,
		StepBandLow:   0.5,
		StepBandHigh:  1.0,
		StepsToMove:   16,

		InclinationThreshold: 25,

		CameraZoom:        0.5,
		CameraAnimationMs: 500,

		DefaultLocation:      "48.8583701,2.2944813",
		PrefsPath:            "street_walker_prefs.txt",
		LocationCheckDelayMs: 1000,

		GPSBaudRate:     9600,
		GPSFixTimeoutMs: 10000,

		ProducerSampleInterval: 200,

		WebServerPort: 8080,
		WebRoot:       "web",

		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_WALKER":
		c.MQTTClientIDWalker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ROTATION_VECTOR":
		c.TopicRotationVector = value
	case "TOPIC_ACCELEROMETER":
		c.TopicAccelerometer = value
	case "TOPIC_CAMERA":
		c.TopicCamera = value
	case "TOPIC_STEPS":
		c.TopicSteps = value
	case "TOPIC_LOCATION":
		c.TopicLocation = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Step detection
	case "STEP_SMOOTHING":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		if v <= 0 || v > 1 {
			return fmt.Errorf("STEP_SMOOTHING must be in (0, 1], got %v", v)
		}
		c.StepSmoothing = v
	case "STEP_BAND_LOW":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.StepBandLow = v
	case "STEP_BAND_HIGH":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.StepBandHigh = v
	case "STEPS_TO_MOVE":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		if v < 1 {
			return fmt.Errorf("STEPS_TO_MOVE must be >= 1, got %d", v)
		}
		c.StepsToMove = v

	// Orientation
	case "INCLINATION_THRESHOLD":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.InclinationThreshold = v

	// Camera
	case "CAMERA_ZOOM":
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		c.CameraZoom = v
	case "CAMERA_ANIMATION_MS":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.CameraAnimationMs = v

	// Location
	case "DEFAULT_LOCATION":
		c.DefaultLocation = value
	case "PREFS_PATH":
		c.PrefsPath = value
	case "LOCATION_CHECK_DELAY_MS":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.LocationCheckDelayMs = v

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.GPSBaudRate = v
	case "GPS_FIX_TIMEOUT_MS":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.GPSFixTimeoutMs = v

	// Timing
	case "PRODUCER_SAMPLE_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.ProducerSampleInterval = v

	// Web Server
	case "WEB_SERVER_PORT":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.WebServerPort = v
	case "WEB_ROOT":
		c.WebRoot = value

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		v, err := parseInt(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = v

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicRotationVector == "" || c.TopicAccelerometer == "" {
		return fmt.Errorf("TOPIC_ROTATION_VECTOR and TOPIC_ACCELEROMETER are required")
	}
	if c.StepBandLow < 0 || c.StepBandLow > c.StepBandHigh {
		return fmt.Errorf("step band must satisfy 0 <= STEP_BAND_LOW <= STEP_BAND_HIGH, got [%v, %v]", c.StepBandLow, c.StepBandHigh)
	}
	if c.PrefsPath == "" {
		return fmt.Errorf("PREFS_PATH is required")
	}
	if c.LocationCheckDelayMs <= 0 {
		return fmt.Errorf("LOCATION_CHECK_DELAY_MS must be > 0")
	}
	if c.ProducerSampleInterval <= 0 {
		return fmt.Errorf("PRODUCER_SAMPLE_INTERVAL must be > 0")
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate == 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required when GPS_SERIAL_PORT is set")
	}
	return nil
}

// CameraAnimation returns the camera re-aim animation duration.
func (c *Config) CameraAnimation() time.Duration {
	return time.Duration(c.CameraAnimationMs) * time.Millisecond
}

// LocationCheckDelay returns the delay before a manual move is verified.
func (c *Config) LocationCheckDelay() time.Duration {
	return time.Duration(c.LocationCheckDelayMs) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
