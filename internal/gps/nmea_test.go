package gps

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

func TestScanner_RMC(t *testing.T) {
	stream := strings.Join([]string{
		nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		"garbage",
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	}, "\r\n") + "\r\n"

	fix, err := NewScanner(strings.NewReader(stream)).Next()
	require.NoError(t, err)
	assert.True(t, fix.Valid())
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, fix.Longitude, 1e-4)
	assert.InDelta(t, 22.4, fix.SpeedKnots, 1e-9)
	assert.InDelta(t, 84.4, fix.CourseDeg, 1e-9)
}

func TestFirstValidFix_SkipsVoid(t *testing.T) {
	stream := strings.Join([]string{
		nmeaLine("GPRMC,123518,V,,,,,,,230394,,"),
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	}, "\n")

	fix, err := FirstValidFix(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	assert.InDelta(t, 48.1173, fix.Position().Lat, 1e-4)
}

func TestFirstValidFix_NoFix(t *testing.T) {
	stream := nmeaLine("GPRMC,123518,V,,,,,,,230394,,") + "\n"

	_, err := FirstValidFix(context.Background(), strings.NewReader(stream))
	assert.ErrorIs(t, err, ErrNoFix)
}

func TestFirstValidFix_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FirstValidFix(ctx, strings.NewReader(""))
	assert.ErrorIs(t, err, context.Canceled)
}
