package devicemonitor

import (
	"sync"

	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// BlockEventSource decouples BlockMonitor from the concrete D-Bus object
// manager: it reports udisks2's ObjectManager signals plus PropertiesChanged
// for any object already seen. Fakes implement this directly in tests;
// the real implementation adapts godbus's InterfacesAdded/InterfacesRemoved/
// PropertiesChanged signals.
type BlockEventSource interface {
	Subscribe(added func(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool),
		removed func(objectPath string),
		fsAdded func(objectPath string),
		fsRemoved func(objectPath string),
		propChanged func(objectPath string, changed mountclient.PropertyBag))
}

// BlockMonitor tracks local block devices by driving a Registry from a
// BlockEventSource and the Backend used to construct mountclient.Device
// handles.
type BlockMonitor struct {
	bus      bus
	backend  mountclient.Backend
	registry *Registry

	mu    sync.Mutex
	state State
}

// NewBlockMonitor builds a BlockMonitor. source delivers the raw udisks2
// events; backend is reused to build each BlockDevice handle once its
// existence has been confirmed.
func NewBlockMonitor(source BlockEventSource, backend mountclient.Backend) *BlockMonitor {
	m := &BlockMonitor{backend: backend, registry: newRegistry()}
	source.Subscribe(m.onAdded, m.onRemoved, m.onFilesystemAdded, m.onFilesystemRemoved, m.onPropertiesChanged)
	return m
}

// Subscribe registers a listener for this monitor's event stream.
func (m *BlockMonitor) Subscribe(l Listener) { m.bus.Subscribe(l) }

// Registry exposes the live device set.
func (m *BlockMonitor) Registry() *Registry { return m.registry }

// Start switches the monitor to Monitoring. Idempotent.
func (m *BlockMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Monitoring
}

// Stop switches the monitor back to Idle. Idempotent.
func (m *BlockMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Idle
}

func (m *BlockMonitor) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Monitoring
}

func (m *BlockMonitor) onAdded(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool) {
	if !m.running() {
		return
	}
	id := mountclient.DeviceId(objectPath)
	dev := mountclient.NewBlockDevice(m.backend, id, hasDrive, driveEjectable, driveCanPowerOff)
	m.registry.put(dev)
	klog.V(3).Infof("devicemonitor: block device added %s", id)
	m.bus.emit(Event{Type: DeviceAdded, DeviceID: id, Kind: mountclient.KindBlock})
	if hasDrive {
		m.bus.emit(Event{Type: DriveAdded, DeviceID: id, Kind: mountclient.KindBlock})
	}
	if st := dev.MountState(); st.IsMounted() {
		m.bus.emit(Event{Type: MountAdded, DeviceID: id, Kind: mountclient.KindBlock, MountPoint: st.MountPoint()})
	}
}

func (m *BlockMonitor) onRemoved(objectPath string) {
	if !m.running() {
		return
	}
	id := mountclient.DeviceId(objectPath)
	if _, ok := m.registry.get(id); !ok {
		return
	}
	m.registry.remove(id)
	klog.V(3).Infof("devicemonitor: block device removed %s", id)
	m.bus.emit(Event{Type: DeviceRemoved, DeviceID: id, Kind: mountclient.KindBlock})
}

// onFilesystemAdded fires when a block object that previously had no
// Filesystem interface (e.g. an unformatted partition that was just
// formatted) acquires one.
func (m *BlockMonitor) onFilesystemAdded(objectPath string) {
	if !m.running() {
		return
	}
	id := mountclient.DeviceId(objectPath)
	if _, ok := m.registry.get(id); !ok {
		return
	}
	m.bus.emit(Event{Type: FileSystemAdded, DeviceID: id, Kind: mountclient.KindBlock})
}

func (m *BlockMonitor) onFilesystemRemoved(objectPath string) {
	if !m.running() {
		return
	}
	id := mountclient.DeviceId(objectPath)
	if _, ok := m.registry.get(id); !ok {
		return
	}
	m.bus.emit(Event{Type: FileSystemRemoved, DeviceID: id, Kind: mountclient.KindBlock})
}

func (m *BlockMonitor) onPropertiesChanged(objectPath string, changed mountclient.PropertyBag) {
	if !m.running() || len(changed) == 0 {
		return
	}
	id := mountclient.DeviceId(objectPath)
	if _, ok := m.registry.get(id); !ok {
		return
	}
	if mp, ok := changed[property.FilesystemMountPoints]; ok {
		if mps, ok := mp.([]string); ok {
			if len(mps) > 0 {
				m.bus.emit(Event{Type: MountAdded, DeviceID: id, Kind: mountclient.KindBlock, MountPoint: mps[0]})
			} else {
				m.bus.emit(Event{Type: MountRemoved, DeviceID: id, Kind: mountclient.KindBlock})
			}
		}
	}
	m.bus.emit(Event{Type: PropertyChanged, DeviceID: id, Kind: mountclient.KindBlock, Changed: changed})
}
