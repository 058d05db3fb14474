package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/street_walker/internal/panorama"
)

func TestWSHost_FullQueueDoesNotBlock(t *testing.T) {
	// no writer goroutine: nothing drains the queue
	h := newQueuedHost(nil)

	for i := 0; i < wsSendQueue; i++ {
		require.NoError(t, h.SetPanorama("p"))
	}

	done := make(chan error, 1)
	go func() { done <- h.Status(1, "", nil) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errViewerBusy)
	case <-time.After(time.Second):
		t.Fatal("Status blocked on a full queue")
	}

	// camera updates use their own slot and still go through
	assert.NoError(t, h.AnimateTo(panorama.Camera{Bearing: 10}, 0))
}

func TestWSHost_CameraUpdatesCoalesce(t *testing.T) {
	h := newQueuedHost(nil)

	for i := 1; i <= 100; i++ {
		require.NoError(t, h.AnimateTo(panorama.Camera{Bearing: float64(i)}, 500*time.Millisecond))
	}

	cmd := h.takeCamera()
	require.NotNil(t, cmd)
	assert.Equal(t, "animate_to", cmd.Type)
	assert.Equal(t, 100.0, cmd.Camera.Bearing)
	assert.Equal(t, int64(500), cmd.DurationMs)
	assert.Len(t, h.wake, 1)
	assert.Nil(t, h.takeCamera())
}

func TestWSHost_ClosedRejectsCommands(t *testing.T) {
	h := newQueuedHost(nil)
	h.closed = true

	assert.ErrorIs(t, h.SetPosition(panorama.LatLng{Lat: 1, Lng: 2}), errViewerClosed)
	assert.ErrorIs(t, h.AnimateTo(panorama.Camera{}, 0), errViewerClosed)
	assert.ErrorIs(t, h.Status(0, "", nil), errViewerClosed)
}
