package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/street_walker/internal/sensors"
)

type fixedSource struct {
	rv  sensors.RotationVector
	acc sensors.Acceleration
	err error
}

func (s fixedSource) Next() (sensors.RotationVector, sensors.Acceleration, error) {
	return s.rv, s.acc, s.err
}

func TestProduce_PublishesDecodableReadings(t *testing.T) {
	cfg := testConfig()
	src := fixedSource{
		rv:  sensors.RotationVector{Values: []float64{0.1, 0.2, 0.3, 0.9}, Timestamp: 42},
		acc: sensors.Acceleration{X: 0.1, Y: 9.8, Z: 0.2, Timestamp: 42},
	}

	var (
		mu   sync.Mutex
		seen = map[string][]byte{}
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- produce(ctx, src, time.Millisecond, func(topic string, payload []byte) error {
			mu.Lock()
			defer mu.Unlock()
			seen[topic] = payload
			return nil
		}, cfg)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()

	rv, err := sensors.DecodeRotationVector(seen[cfg.TopicRotationVector])
	require.NoError(t, err)
	assert.Equal(t, src.rv, rv)

	acc, err := sensors.DecodeAcceleration(seen[cfg.TopicAccelerometer])
	require.NoError(t, err)
	assert.Equal(t, src.acc, acc)
}

func TestProduce_SourceErrorsAreSkipped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	err := produce(ctx, fixedSource{err: errors.New("sensor offline")}, time.Millisecond, func(string, []byte) error {
		calls++
		return nil
	}, testConfig())

	require.NoError(t, err)
	assert.Zero(t, calls)
}
