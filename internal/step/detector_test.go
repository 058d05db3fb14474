package step

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedY pushes samples that only vary on Y.
func feedY(t *testing.T, d *Detector, ys ...float64) []Event {
	t.Helper()
	out := make([]Event, 0, len(ys))
	for _, y := range ys {
		ev, err := d.Update([]float64{0, y, 0})
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func TestUpdate_BandIsClosed(t *testing.T) {
	cases := []struct {
		delta float64
		step  bool
	}{
		{0.49, false},
		{0.5, true},
		{0.75, true},
		{1.0, true},
		{1.01, false},
		{0, false},
		{9.81, false},
	}
	for _, tc := range cases {
		d := NewDetector(DefaultConfig())
		// prevY starts at 0, so the first sample's delta is the sample itself.
		ev := feedY(t, d, tc.delta)[0]
		assert.Equal(t, tc.step, ev.Step, "delta=%v", tc.delta)
		assert.InDelta(t, tc.delta, ev.Delta, 1e-12)
	}
}

func TestUpdate_OneStepPerQualifyingSample(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// 9.0 from rest is outside the band, then each ±0.8 swing counts.
	events := feedY(t, d, 9.0, 9.8, 9.0, 9.8, 11.0, 11.6)
	var steps []bool
	for _, ev := range events {
		steps = append(steps, ev.Step)
	}
	assert.Equal(t, []bool{false, true, true, true, false, true}, steps)
	assert.Equal(t, 4, d.Count())
}

func TestUpdate_PrevYAlwaysTracked(t *testing.T) {
	d := NewDetector(DefaultConfig())

	// The 5.0 jump is rejected but still becomes the new reference, so
	// the next sample's delta is measured from 5.0.
	events := feedY(t, d, 0.7, 5.0, 5.6)
	assert.True(t, events[0].Step)
	assert.False(t, events[1].Step)
	assert.True(t, events[2].Step)
	assert.InDelta(t, 0.6, events[2].Delta, 1e-9)
}

func TestUpdate_AdvanceEverySixteenSteps(t *testing.T) {
	d := NewDetector(DefaultConfig())

	y := 0.0
	for i := 1; i <= 64; i++ {
		if i%2 == 0 {
			y -= 0.8
		} else {
			y += 0.8
		}
		ev := feedY(t, d, y)[0]
		require.True(t, ev.Step)
		assert.Equal(t, i, ev.Count)
		assert.Equal(t, i%16 == 0, ev.Advance, "count=%d", i)
	}
}

func TestUpdate_CounterMonotonic(t *testing.T) {
	d := NewDetector(DefaultConfig())
	rng := rand.New(rand.NewSource(1))

	last := 0
	for i := 0; i < 2000; i++ {
		ev, err := d.Update([]float64{rng.NormFloat64(), 9.81 + rng.NormFloat64(), rng.NormFloat64()})
		require.NoError(t, err)
		require.GreaterOrEqual(t, ev.Count, last)
		if ev.Step {
			require.Equal(t, last+1, ev.Count)
		}
		last = ev.Count
	}
}

func TestUpdate_SmoothingFactor(t *testing.T) {
	raw := NewDetector(DefaultConfig())
	feedY(t, raw, 10)
	assert.Equal(t, [3]float64{0, 10, 0}, raw.Gravity())

	cfg := DefaultConfig()
	cfg.Smoothing = 0.1
	smooth := NewDetector(cfg)
	events := feedY(t, smooth, 10, 10)
	assert.InDelta(t, 1.9, smooth.Gravity()[1], 1e-9)
	// 0 -> 1.0 -> 1.9: the first move is on the band edge, the second inside it.
	assert.True(t, events[0].Step)
	assert.True(t, events[1].Step)
}

func TestUpdate_ShortSample(t *testing.T) {
	d := NewDetector(DefaultConfig())
	feedY(t, d, 0.7)

	ev, err := d.Update([]float64{1, 2})
	assert.ErrorIs(t, err, ErrShortSample)
	assert.Equal(t, 1, ev.Count)
	assert.Equal(t, [3]float64{0, 0.7, 0}, d.Gravity())
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Config{})
	assert.Equal(t, DefaultConfig(), d.Config())
}
