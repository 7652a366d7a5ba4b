package opticalengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/opticalengine"
)

func TestEngine_DoBurn_Succeeds(t *testing.T) {
	device := fake.NewDeviceHandle()
	device.Messages = []string{"50.0% fifo", "Writing to /dev/sr0 completed successfully."}
	e := opticalengine.New(device, nil, nil, nil)

	job, err := e.DoBurn(context.Background(), "/dev/sr0", opticalengine.BurnOptions{
		Files:     []opticalengine.FileMapping{{Source: "/tmp/a", Destination: "a"}},
		SpeedKBps: 24,
		VolumeID:  "MYDISC",
		Joliet:    true,
		RockRidge: true,
	})
	require.NoError(t, err)
	assert.Equal(t, opticalengine.JobFinished, job.State())
	assert.False(t, device.Acquired)
}

func TestEngine_DoBurn_AbortsOnCommandFailure(t *testing.T) {
	device := fake.NewDeviceHandle()
	device.RunStatus = 0
	e := opticalengine.New(device, nil, nil, nil)

	job, err := e.DoBurn(context.Background(), "/dev/sr0", opticalengine.BurnOptions{SpeedKBps: 24, VolumeID: "X"})
	require.Error(t, err)
	assert.Equal(t, opticalengine.JobFailed, job.State())

	found := false
	for _, cmds := range device.LastCommands {
		for _, c := range cmds {
			if c == "option_end" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected option_end to be issued on abort")
}

func TestEngine_DoErase(t *testing.T) {
	device := fake.NewDeviceHandle()
	device.Messages = []string{"Blanking done"}
	e := opticalengine.New(device, nil, nil, nil)

	job, err := e.DoErase(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	assert.Equal(t, opticalengine.JobFinished, job.State())
}

func TestEngine_DoDumpISO_RefusesZeroDataBlocks(t *testing.T) {
	device := fake.NewDeviceHandle()
	e := opticalengine.New(device, nil, nil, nil)

	_, err := e.DoDumpISO(context.Background(), "/dev/sr0", 0, "/tmp/out.iso")
	require.Error(t, err)
}

func TestEngine_DoCheckmedia_ClassifiesRegions(t *testing.T) {
	device := fake.NewDeviceHandle()
	device.Messages = []string{
		"Media region : 0 700 0",
		"Media region : 700 200 0 slow",
		"Media region : 900 100 -1",
	}
	e := opticalengine.New(device, nil, nil, nil)

	result, err := e.DoCheckmedia(context.Background(), "/dev/sr0", 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, result.GoodFraction, 0.001)
	assert.InDelta(t, 0.2, result.SlowFraction, 0.001)
	assert.InDelta(t, 0.1, result.BadFraction, 0.001)
}

func TestEngine_Inspect_ProbesDVDRWTrueCapacity(t *testing.T) {
	device := fake.NewDeviceHandle()
	device.Properties = []string{
		"Media current: DVD-RW rewritable",
		"Media summary: full, 2295104, 4700000000, 0",
	}
	scsi := &fake.SCSIProbe{BlockSize: 2048, Capacity: 2295104}
	e := opticalengine.New(device, scsi, nil, nil)

	info, err := e.Inspect(context.Background(), "/dev/sr0")
	require.NoError(t, err)
	assert.Equal(t, int64(2048*2295104), info.TotalBytes)
	assert.Equal(t, info.TotalBytes, info.UsedBytes)
}
