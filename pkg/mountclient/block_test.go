package mountclient_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

func TestBlockDevice_NotMountableWithoutFilesystemInterface(t *testing.T) {
	backend := fake.NewMountBackend()
	dev := mountclient.NewBlockDevice(backend, "/org/freedesktop/UDisks2/block_devices/sda1", false, false, false)

	_, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.UserErrorNotMountable, de.Code)
}

func TestBlockDevice_MountAlreadyMountedReturnsCurrentMountPoint(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sdb1")
	backend.Filesystems[id] = true
	backend.MountPoints[id] = []string{"/media/user/disk"}

	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	mp, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/media/user/disk", mp)

	var de *deviceerr.Error
	require.True(t, errors.As(dev.LastError(), &de))
	assert.Equal(t, deviceerr.AlreadyMounted, de.Code)
}

func TestBlockDevice_MountSuccess(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sdc1")
	backend.Filesystems[id] = true
	backend.MountResult[id] = "/media/user/usb"

	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	mp, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/media/user/usb", mp)
	assert.True(t, dev.MountState().IsMounted())
	assert.Equal(t, "/media/user/usb", dev.MountState().MountPoint())
}

func TestBlockDevice_UnmountNotMountedIsNonFatal(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sdd1")
	backend.Filesystems[id] = true

	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	err := dev.Unmount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)

	var de *deviceerr.Error
	require.True(t, errors.As(dev.LastError(), &de))
	assert.Equal(t, deviceerr.UserErrorNotMounted, de.Code)
}

func TestBlockDevice_JobInProgressFailsFast(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sde1")
	backend.Filesystems[id] = true
	backend.Jobs[id] = mountclient.JobInfo{Operation: "filesystem-mount"}

	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	_, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.DeviceBusy, de.Code)
	assert.Equal(t, "filesystem-mount", de.Detail)
}

func TestBlockDevice_EjectRequiresCapability(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sr0")
	dev := mountclient.NewBlockDevice(backend, id, true, false, false)

	err := dev.Eject(context.Background(), mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.UserErrorNotEjectable, de.Code)
}

func TestBlockDevice_RenameFailsWhenMounted(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sdf1")
	backend.Filesystems[id] = true
	backend.MountPoints[id] = []string{"/media/user/sdf1"}

	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	err := dev.Rename(context.Background(), "NEWLABEL", mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.AlreadyMounted, de.Code)
}

func TestBlockDevice_LoopDeviceHasNoDrive(t *testing.T) {
	backend := fake.NewMountBackend()
	id := mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/loop0")
	dev := mountclient.NewBlockDevice(backend, id, false, false, false)
	assert.False(t, dev.Capabilities().Has(mountclient.CapRescanable))
	assert.False(t, dev.Capabilities().Has(mountclient.CapEjectable))
}
