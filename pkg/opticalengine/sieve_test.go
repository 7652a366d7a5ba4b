package opticalengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSieve_ParsesMediaCurrent(t *testing.T) {
	info := sieve("/dev/sr0", []string{"Media current: DVD-RW rewritable"}, nil)
	assert.Equal(t, DVDRW, info.Media)
}

func TestSieve_UnknownMediaIsNoMedia(t *testing.T) {
	info := sieve("/dev/sr0", []string{"Media current: LASERDISC"}, nil)
	assert.Equal(t, NoMedia, info.Media)
}

func TestSieve_ParsesMediaSummaryWithScaledSizes(t *testing.T) {
	info := sieve("/dev/sr0", []string{"Media summary: blank, 2295104, 4.3g, 0"}, nil)
	assert.InDelta(t, int64(4.3*(1<<30)), info.UsedBytes, 1)
	assert.Equal(t, int64(0), info.AvailBytes)
	assert.Equal(t, int64(2295104), info.DataBlocks)
	assert.Equal(t, info.UsedBytes, info.TotalBytes)
}

func TestSieve_MediaStatusBlank(t *testing.T) {
	info := sieve("/dev/sr0", []string{"Media status : the media is blank"}, nil)
	assert.True(t, info.Blank)
}

func TestSieve_VolumeID(t *testing.T) {
	info := sieve("/dev/sr0", []string{"Volume id    : MYDISC"}, nil)
	assert.Equal(t, "MYDISC", info.VolumeID)
}

func TestSieve_WriteSpeeds(t *testing.T) {
	info := sieve("/dev/sr0", nil, []string{
		"Write speed  : 1385000\t1x",
		"Write speed  : 11080000\t8x",
	})
	assert.Len(t, info.WriteSpeeds, 2)
	assert.Equal(t, int64(1385000), info.WriteSpeeds[0].BytesPerSecond)
	assert.Equal(t, "1x", info.WriteSpeeds[0].Label)
}
