package devicemonitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/devicemonitor"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

func TestBlockMonitor_AddEmitsDeviceAndDriveAdded(t *testing.T) {
	source := fake.NewBlockEventSource()
	backend := fake.NewMountBackend()
	mon := devicemonitor.NewBlockMonitor(source, backend)

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	mon.Start()

	source.Add("/org/freedesktop/UDisks2/block_devices/sda1", true, false, true, true, false)

	require.Len(t, events, 2)
	assert.Equal(t, devicemonitor.DeviceAdded, events[0].Type)
	assert.Equal(t, devicemonitor.DriveAdded, events[1].Type)
	assert.Contains(t, mon.Registry().Devices(), mountclient.DeviceId("/org/freedesktop/UDisks2/block_devices/sda1"))
}

func TestBlockMonitor_IgnoresEventsWhileStopped(t *testing.T) {
	source := fake.NewBlockEventSource()
	backend := fake.NewMountBackend()
	mon := devicemonitor.NewBlockMonitor(source, backend)

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.Add("/org/freedesktop/UDisks2/block_devices/sdb1", true, false, false, false, false)
	assert.Empty(t, events)
	assert.Empty(t, mon.Registry().Devices())
}

func TestBlockMonitor_RemoveEmitsDeviceRemoved(t *testing.T) {
	source := fake.NewBlockEventSource()
	backend := fake.NewMountBackend()
	mon := devicemonitor.NewBlockMonitor(source, backend)
	mon.Start()

	id := "/org/freedesktop/UDisks2/block_devices/sdc1"
	source.Add(id, true, false, false, false, false)

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	source.Remove(id)

	require.Len(t, events, 1)
	assert.Equal(t, devicemonitor.DeviceRemoved, events[0].Type)
	assert.NotContains(t, mon.Registry().Devices(), mountclient.DeviceId(id))
}

func TestBlockMonitor_FilesystemAddedAfterFormat(t *testing.T) {
	source := fake.NewBlockEventSource()
	backend := fake.NewMountBackend()
	mon := devicemonitor.NewBlockMonitor(source, backend)
	mon.Start()

	id := "/org/freedesktop/UDisks2/block_devices/sdd1"
	source.Add(id, false, false, false, false, false)

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	source.FilesystemAdded(id)

	require.Len(t, events, 1)
	assert.Equal(t, devicemonitor.FileSystemAdded, events[0].Type)
}

func TestBlockMonitor_MountPointPropertyChangeEmitsMountAdded(t *testing.T) {
	source := fake.NewBlockEventSource()
	backend := fake.NewMountBackend()
	mon := devicemonitor.NewBlockMonitor(source, backend)
	mon.Start()

	id := "/org/freedesktop/UDisks2/block_devices/sde1"
	source.Add(id, true, false, false, false, false)

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	source.PropertiesChanged(id, mountclient.PropertyBag{
		property.FilesystemMountPoints: []string{"/media/user/sde1"},
	})

	require.Len(t, events, 2)
	assert.Equal(t, devicemonitor.MountAdded, events[0].Type)
	assert.Equal(t, "/media/user/sde1", events[0].MountPoint)
	assert.Equal(t, devicemonitor.PropertyChanged, events[1].Type)
}
