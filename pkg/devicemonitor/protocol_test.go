package devicemonitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/devicemonitor"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

func TestProtocolMonitor_VolumeThenMountSettles(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.VolumeAdded("vol-1", "smb://host/share", false)
	source.MountAdded("/run/user/1000/gvfs/smb-share:server=host,share=share", "", "vol-1")

	require.Len(t, events, 2)
	assert.Equal(t, devicemonitor.DeviceAdded, events[0].Type)
	assert.Equal(t, devicemonitor.MountAdded, events[1].Type)
	assert.Contains(t, mon.Registry().Devices(), mountclient.DeviceId("smb://host/share"))
}

func TestProtocolMonitor_MountThenVolumeSettles(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	source.MountAdded("/run/user/1000/gvfs/ftp-share", "", "vol-2")

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.VolumeAdded("vol-2", "ftp://host/pub", false)

	require.Len(t, events, 0, "volume arriving second settles silently onto the already-published orphan entry")
}

func TestProtocolMonitor_OrphanMountPublishedImmediately(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.MountAdded("/run/user/1000/gvfs/sftp-host", "", "")

	require.Len(t, events, 2)
	assert.Equal(t, devicemonitor.DeviceAdded, events[0].Type)
	assert.Equal(t, devicemonitor.MountAdded, events[1].Type)
}

func TestProtocolMonitor_NativeBlockMountIsIgnored(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.MountAdded("/media/alice/usbdisk", "/dev/sdb1", "")

	assert.Empty(t, events)
	assert.Empty(t, mon.Registry().Devices())
}

func TestProtocolMonitor_MountByOtherUserIsIgnored(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.MountAdded("/media/bob/smbmounts/share", "", "")

	assert.Empty(t, events)
}

func TestProtocolMonitor_MountRemovedWithVolumeKeepsEntry(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	source.VolumeAdded("vol-3", "smb://host2/share", false)
	source.MountAdded("/run/user/1000/gvfs/smb-share:server=host2,share=share", "", "vol-3")

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	source.MountRemoved("/run/user/1000/gvfs/smb-share:server=host2,share=share")

	require.Len(t, events, 1)
	assert.Equal(t, devicemonitor.MountRemoved, events[0].Type)
	assert.Contains(t, mon.Registry().Devices(), mountclient.DeviceId("smb://host2/share"))
}

func TestProtocolMonitor_VolumeRemovedDropsEntry(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	source.VolumeAdded("vol-4", "smb://host3/share", false)
	source.MountAdded("/run/user/1000/gvfs/smb-share:server=host3,share=share", "", "vol-4")

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })
	source.VolumeRemoved("vol-4")

	require.Len(t, events, 1)
	assert.Equal(t, devicemonitor.DeviceRemoved, events[0].Type)
	assert.NotContains(t, mon.Registry().Devices(), mountclient.DeviceId("smb://host3/share"))
}

func TestProtocolMonitor_DriveBackedVolumeIsIgnoredByThisMonitor(t *testing.T) {
	source := fake.NewProtocolEventSource()
	backend := fake.NewProtocolBackend()
	mon := devicemonitor.NewProtocolMonitor(source, backend, nil, "alice")
	mon.Start()

	var events []devicemonitor.Event
	mon.Subscribe(func(e devicemonitor.Event) { events = append(events, e) })

	source.VolumeAdded("vol-5", "file:///media/alice/usbdisk", true)

	assert.Empty(t, events)
}
