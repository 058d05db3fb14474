package orientation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quat returns the rotation vector (x, y, z, w) for angle rad about a unit axis.
func quat(ax, ay, az, rad float64) []float64 {
	s := math.Sin(rad / 2)
	return []float64{ax * s, ay * s, az * s, math.Cos(rad / 2)}
}

// mul multiplies two quaternions stored as (x, y, z, w).
func mul(a, b []float64) []float64 {
	ax, ay, az, aw := a[0], a[1], a[2], a[3]
	bx, by, bz, bw := b[0], b[1], b[2], b[3]
	return []float64{
		aw*bx + ax*bw + ay*bz - az*by,
		aw*by - ax*bz + ay*bw + az*bx,
		aw*bz + ax*by - ay*bx + az*bw,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

func TestEstimate_FlatDeviceNoRemap(t *testing.T) {
	e := NewEstimator(0)

	pose, err := e.Estimate([]float64{0, 0, 0, 1})
	require.NoError(t, err)

	assert.False(t, pose.Remapped)
	assert.InDelta(t, 0, pose.Inclination, 1e-9)
	assert.InDelta(t, 0, pose.Bearing, 1e-9)
	assert.InDelta(t, -90, pose.Tilt, 1e-9)
}

func TestEstimate_UprightDeviceRemaps(t *testing.T) {
	e := NewEstimator(0)

	pose, err := e.Estimate(quat(1, 0, 0, math.Pi/2))
	require.NoError(t, err)

	assert.True(t, pose.Remapped)
	assert.InDelta(t, 0, pose.Bearing, 1e-9)
	assert.InDelta(t, 0, pose.Tilt, 1e-9)
}

func TestEstimate_UprightDeviceTurned(t *testing.T) {
	e := NewEstimator(0)

	// Counter-clockwise yaw of 30° seen from above is a compass heading of 330°.
	rv := mul(quat(0, 0, 1, 30*math.Pi/180), quat(1, 0, 0, math.Pi/2))
	pose, err := e.Estimate(rv)
	require.NoError(t, err)

	assert.True(t, pose.Remapped)
	assert.InDelta(t, 330, pose.Bearing, 1e-6)
	assert.InDelta(t, 0, pose.Tilt, 1e-6)
}

func TestEstimate_ThresholdBoundary(t *testing.T) {
	e := NewEstimator(DefaultInclinationThreshold)

	// Tilting about X by θ rad gives an inclination of θ*100.
	below, err := e.Estimate(quat(1, 0, 0, 0.20))
	require.NoError(t, err)
	assert.InDelta(t, 20, below.Inclination, 1e-6)
	assert.False(t, below.Remapped)

	above, err := e.Estimate(quat(1, 0, 0, 0.30))
	require.NoError(t, err)
	assert.InDelta(t, 30, above.Inclination, 1e-6)
	assert.True(t, above.Remapped)

	for _, p := range []Pose{below, above} {
		assert.GreaterOrEqual(t, p.Bearing, 0.0)
		assert.Less(t, p.Bearing, 360.0)
		assert.GreaterOrEqual(t, p.Tilt, -90.0)
		assert.LessOrEqual(t, p.Tilt, 90.0)
	}
}

func TestEstimate_ThreeValueVectorRecoversW(t *testing.T) {
	e := NewEstimator(0)
	full := quat(0, 1, 0, 0.7)

	withW, err := e.Estimate(full)
	require.NoError(t, err)
	withoutW, err := e.Estimate(full[:3])
	require.NoError(t, err)

	assert.InDelta(t, withW.Bearing, withoutW.Bearing, 1e-9)
	assert.InDelta(t, withW.Tilt, withoutW.Tilt, 1e-9)
}

func TestEstimate_OutputRanges(t *testing.T) {
	e := NewEstimator(0)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		n := 3 + rng.Intn(3)
		v := make([]float64, n)
		for j := range v {
			// Deliberately exceed the unit sphere now and then.
			v[j] = (rng.Float64()*2 - 1) * 1.5
		}

		pose, err := e.Estimate(v)
		require.NoError(t, err)
		require.False(t, math.IsNaN(pose.Bearing), "v=%v", v)
		require.False(t, math.IsNaN(pose.Tilt), "v=%v", v)
		require.GreaterOrEqual(t, pose.Bearing, 0.0, "v=%v", v)
		require.Less(t, pose.Bearing, 360.0, "v=%v", v)
		require.GreaterOrEqual(t, pose.Tilt, -90.0, "v=%v", v)
		require.LessOrEqual(t, pose.Tilt, 90.0, "v=%v", v)
	}
}

func TestEstimate_Errors(t *testing.T) {
	e := NewEstimator(0)

	_, err := e.Estimate([]float64{0, 0})
	assert.ErrorIs(t, err, ErrShortSample)

	_, err = e.Estimate([]float64{0, math.NaN(), 0})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = e.Estimate([]float64{math.Inf(1), 0, 0})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestNormalizeBearing(t *testing.T) {
	cases := map[float64]float64{
		0:      0,
		359.5:  359.5,
		360:    0,
		-30:    330,
		-180:   180,
		725:    5,
		-720.5: 359.5,
	}
	for in, want := range cases {
		assert.InDelta(t, want, NormalizeBearing(in), 1e-9, "in=%v", in)
	}
	assert.Equal(t, 0.0, NormalizeBearing(-1e-15))
}

func TestClampTilt(t *testing.T) {
	assert.Equal(t, -90.0, ClampTilt(-120))
	assert.Equal(t, 90.0, ClampTilt(179))
	assert.Equal(t, 12.5, ClampTilt(12.5))
}
