package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEWKB_RoundTrip(t *testing.T) {
	p := Point{Lat: 41.8925, Lon: -87.6262}

	data, err := EncodeEWKB(p)
	require.NoError(t, err)
	// byte order + type word with SRID flag + SRID + two doubles
	assert.Len(t, data, 1+4+4+16)
	assert.Equal(t, byte(1), data[0])

	got, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestEncodeEWKB_InvalidPoint(t *testing.T) {
	_, err := EncodeEWKB(Point{Lat: 91, Lon: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid coordinates")
}

func TestDecodeEWKB_Garbage(t *testing.T) {
	_, err := DecodeEWKB([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode EWKB")
}
