package geohash_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/privaccess/go-privaccess-auth/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeKnownPoints(t *testing.T) {
	cases := []struct {
		lat, lon  float64
		precision int
		want      string
	}{
		{42.6, -5.6, 5, "ezs42"},
		{37.7749, -122.4194, 6, "9q8yyk"},
		{57.64911, 10.40744, 11, "u4pruydqqvj"},
		{0, 0, 6, "s00000"},
		{90, 180, 4, "zzzz"},
		{-90, -180, 4, "0000"},
	}
	for _, tc := range cases {
		got, err := geohash.Encode(tc.lat, tc.lon, tc.precision)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "lat=%f lon=%f", tc.lat, tc.lon)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	first, err := geohash.Encode(37.7749, -122.4194, 6)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := geohash.Encode(37.7749, -122.4194, 6)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestPrefixStability(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		lat := rng.Float64()*180 - 90
		lon := rng.Float64()*360 - 180

		long, err := geohash.Encode(lat, lon, 7)
		require.NoError(t, err)
		require.Len(t, long, 7)

		short, err := geohash.Encode(lat, lon, 6)
		require.NoError(t, err)
		require.Equal(t, long[:6], short, "lat=%f lon=%f", lat, lon)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := geohash.Encode(91, 0, 6)
	require.Error(t, err)
	_, err = geohash.Encode(-90.0001, 0, 6)
	require.Error(t, err)
	_, err = geohash.Encode(0, 180.5, 6)
	require.Error(t, err)
	_, err = geohash.Encode(0, 0, 0)
	require.Error(t, err)
	_, err = geohash.Encode(0, 0, -3)
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, geohash.Valid("9q8yyk"))
	assert.True(t, geohash.Valid("0"))
	assert.False(t, geohash.Valid(""))
	assert.False(t, geohash.Valid("9q8yyA"))
	// a, i, l, o are not in the alphabet
	for _, c := range []string{"a", "i", "l", "o"} {
		assert.False(t, geohash.Valid(c), "%q must be invalid", c)
	}
}

func TestAlphabetShape(t *testing.T) {
	require.Len(t, geohash.Alphabet, 32)
	for _, excluded := range "ailo" {
		require.False(t, strings.ContainsRune(geohash.Alphabet, excluded))
	}
}
