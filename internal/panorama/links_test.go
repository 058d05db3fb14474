package panorama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngularDistance(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{5, 10, 5},
		{5, 170, 165},
		{5, 260, 105},
		{350, 10, 20},
		{10, 350, 20},
		{0, 180, 180},
		{180, 0, 180},
		{720, 0, 0},
		{-90, 90, 180},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, AngularDistance(tc.a, tc.b), 1e-9, "a=%v b=%v", tc.a, tc.b)
	}
}

func TestSelectClosest(t *testing.T) {
	links := []Link{
		{PanoID: "north-east", Bearing: 10},
		{PanoID: "south", Bearing: 170},
		{PanoID: "west", Bearing: 260},
	}

	got, err := SelectClosest(links, 5)
	require.NoError(t, err)
	assert.Equal(t, "north-east", got.PanoID)

	got, err = SelectClosest(links, 200)
	require.NoError(t, err)
	assert.Equal(t, "south", got.PanoID)

	got, err = SelectClosest(links, 300)
	require.NoError(t, err)
	assert.Equal(t, "west", got.PanoID)
}

func TestSelectClosest_WrapsAroundNorth(t *testing.T) {
	links := []Link{{PanoID: "a", Bearing: 90}, {PanoID: "b", Bearing: 355}}

	got, err := SelectClosest(links, 15)
	require.NoError(t, err)
	assert.Equal(t, "b", got.PanoID)
}

func TestSelectClosest_TieKeepsFirst(t *testing.T) {
	links := []Link{{PanoID: "first", Bearing: 80}, {PanoID: "second", Bearing: 100}}

	got, err := SelectClosest(links, 90)
	require.NoError(t, err)
	assert.Equal(t, "first", got.PanoID)
}

func TestSelectClosest_Empty(t *testing.T) {
	_, err := SelectClosest(nil, 0)
	assert.ErrorIs(t, err, ErrNoLinks)
}
