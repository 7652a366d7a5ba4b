package opticalengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressParser_ClosingTrackIsStalledOne(t *testing.T) {
	p := newProgressParser(0)
	ev, region := p.parseMessage("UPDATE : Closing track/session.")
	require.NotNil(t, ev)
	assert.Nil(t, region)
	assert.Equal(t, JobStalled, ev.State)
	assert.Equal(t, 1.0, ev.Progress)
}

func TestProgressParser_ThankYouIsStalledZero(t *testing.T) {
	p := newProgressParser(0)
	ev, _ := p.parseMessage("UPDATE : Thank you for being patient.")
	require.NotNil(t, ev)
	assert.Equal(t, JobStalled, ev.State)
	assert.Equal(t, 0.0, ev.Progress)
}

func TestProgressParser_PercentDone(t *testing.T) {
	p := newProgressParser(0)
	ev, _ := p.parseMessage("42.5% done, estimate finish")
	require.NotNil(t, ev)
	assert.Equal(t, JobRunning, ev.State)
	assert.InDelta(t, 42.5, ev.Progress, 0.001)
}

func TestProgressParser_SpeedUpdatesInPlaceNoEvent(t *testing.T) {
	p := newProgressParser(0)
	ev, region := p.parseMessage("8.0x. writing")
	assert.Nil(t, ev)
	assert.Nil(t, region)
	assert.Equal(t, "8.0x", p.currentSpeed)
}

func TestProgressParser_MBWritten(t *testing.T) {
	p := newProgressParser(0)
	ev, _ := p.parseMessage("350 of 700 MB written")
	require.NotNil(t, ev)
	assert.Equal(t, JobRunning, ev.State)
	assert.InDelta(t, 50.0, ev.Progress, 0.001)
}

func TestProgressParser_BlocksReadUsesDataBlocks(t *testing.T) {
	p := newProgressParser(1000)
	ev, _ := p.parseMessage("500 blocks read in 10 seconds , 4.0x")
	require.NotNil(t, ev)
	assert.Equal(t, JobRunning, ev.State)
	assert.InDelta(t, 50.0, ev.Progress, 0.001)
}

func TestProgressParser_FinishedMessages(t *testing.T) {
	p := newProgressParser(0)
	ev, _ := p.parseMessage("Blanking done")
	require.NotNil(t, ev)
	assert.Equal(t, JobFinished, ev.State)

	p2 := newProgressParser(0)
	ev2, _ := p2.parseMessage("Writing to /dev/sr0 completed successfully.")
	require.NotNil(t, ev2)
	assert.Equal(t, JobFinished, ev2.State)
}

func TestProgressParser_MediaRegionIsNotAnEvent(t *testing.T) {
	p := newProgressParser(0)
	ev, region := p.parseMessage("Media region : 0 1000 0")
	assert.Nil(t, ev)
	require.NotNil(t, region)
	assert.Equal(t, int64(0), region.Offset)
	assert.Equal(t, int64(1000), region.SizeBlocks)
}

func TestProgressParser_NonMatchingIsBuffered(t *testing.T) {
	p := newProgressParser(0)
	p.parseMessage("some unrelated diagnostic line")
	msgs := p.takeInfoMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "some unrelated diagnostic line", msgs[0])
	assert.Empty(t, p.takeInfoMessages())
}

func TestClassifyRegion(t *testing.T) {
	assert.Equal(t, "bad", classifyRegion("-1"))
	assert.Equal(t, "slow", classifyRegion("0 slow"))
	assert.Equal(t, "good", classifyRegion("0"))
}
