package devicemonitor

import (
	"regexp"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// mountedByOtherUser matches gvfs's per-user smb mount staging directory,
// so a mount placed there under a user name other than the monitor's
// currentUser isn't surfaced as if it belonged to this session.
var mountedByOtherUser = regexp.MustCompile(`^/(?:run/)?media/([^/]+)/smbmounts/`)

// ProtocolEventSource decouples ProtocolMonitor from the concrete gvfs
// volume-monitor transport. volumeAdded/volumeRemoved track gvfs Volume
// objects; mountAdded/mountRemoved track gvfs Mount objects. A volume and
// a mount for the same resource can arrive in either order or alone.
type ProtocolEventSource interface {
	Subscribe(
		volumeAdded func(volumeID, activationURI string, hasDrive bool),
		volumeRemoved func(volumeID string),
		mountAdded func(mountRoot, sourceDevicePath, volumeID string),
		mountRemoved func(mountRoot string),
	)
}

// protocolEntry is one reconciled cache row: a resource known by at most
// one of {volume, mount} or both at once.
type protocolEntry struct {
	activationURI string // keys the entry; the mount root for a mount-only entry with no matching volume
	volumeID      string
	mountRoot     string
	hasVolume     bool
	hasMount      bool
}

func (e *protocolEntry) linkage() mountclient.VolumeLinkage {
	return mountclient.VolumeLinkage{HasVolume: e.hasVolume, HasMount: e.hasMount, VolumeID: e.volumeID}
}

// linkageSetter is implemented by backends that need ProtocolMonitor's
// reconciled volume/mount view pushed back to them (DBusProtocolBackend),
// rather than deriving it independently.
type linkageSetter interface {
	SetLinkage(id mountclient.DeviceId, l mountclient.VolumeLinkage)
}

func (m *ProtocolMonitor) reportLinkage(id mountclient.DeviceId, e *protocolEntry) {
	if setter, ok := m.backend.(linkageSetter); ok {
		setter.SetLinkage(id, e.linkage())
	}
}

// ProtocolMonitor reconciles gvfs's independent volume and mount streams
// into a single Device view, keyed by activation URI. A volume with no
// drive and a mount with no volume can each arrive first; this is the
// monitor's central bookkeeping problem.
type ProtocolMonitor struct {
	bus       bus
	backend   mountclient.ProtocolBackend
	smb       mountclient.SMBHandoff
	currentUser string

	mu       sync.Mutex
	state    State
	entries  map[string]*protocolEntry // keyed by activation URI or synthetic mount key
	registry *Registry
}

// NewProtocolMonitor builds a ProtocolMonitor. currentUser names the
// session user so mounts staged under another user's smbmounts directory
// can be rejected as foreign.
func NewProtocolMonitor(source ProtocolEventSource, backend mountclient.ProtocolBackend, smb mountclient.SMBHandoff, currentUser string) *ProtocolMonitor {
	m := &ProtocolMonitor{
		backend:     backend,
		smb:         smb,
		currentUser: currentUser,
		entries:     map[string]*protocolEntry{},
		registry:    newRegistry(),
	}
	source.Subscribe(m.onVolumeAdded, m.onVolumeRemoved, m.onMountAdded, m.onMountRemoved)
	return m
}

func (m *ProtocolMonitor) Subscribe(l Listener) { m.bus.Subscribe(l) }
func (m *ProtocolMonitor) Registry() *Registry   { return m.registry }

func (m *ProtocolMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Monitoring
}

func (m *ProtocolMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Idle
}

func (m *ProtocolMonitor) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Monitoring
}

// isNativeMount rejects mounts sourced from a local block device
// (/dev/...): those belong to BlockMonitor, not here, even if gvfs also
// surfaces a Mount object for them.
func isNativeMount(sourceDevicePath string) bool {
	return strings.HasPrefix(sourceDevicePath, "/dev/")
}

func (m *ProtocolMonitor) mountedByForeignUser(mountRoot string) bool {
	match := mountedByOtherUser.FindStringSubmatch(mountRoot)
	if match == nil {
		return false
	}
	return match[1] != m.currentUser
}

// onVolumeAdded implements rule 1: a driveless volume either completes an
// existing orphan-mount entry carrying the same volume id, or is inserted
// as a volume-only entry awaiting its mount.
func (m *ProtocolMonitor) onVolumeAdded(volumeID, activationURI string, hasDrive bool) {
	if !m.running() || hasDrive {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.volumeID == volumeID && e.hasMount && !e.hasVolume {
			e.hasVolume = true
			e.activationURI = activationURI
			m.settle(key, e)
			return
		}
	}

	m.entries[activationURI] = &protocolEntry{
		activationURI: activationURI,
		volumeID:      volumeID,
		hasVolume:     true,
	}
}

// onMountAdded implements rule 2: a mount either settles the volume side
// of an existing volume-only entry, or — if orphaned — is admitted as a
// new entry unless it's a native block mount or staged by another user.
func (m *ProtocolMonitor) onMountAdded(mountRoot, sourceDevicePath, volumeID string) {
	if !m.running() {
		return
	}
	if isNativeMount(sourceDevicePath) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if volumeID != "" {
		for key, e := range m.entries {
			if e.volumeID == volumeID && e.hasVolume && !e.hasMount {
				e.hasMount = true
				e.mountRoot = mountRoot
				m.settle(key, e)
				return
			}
		}
	}

	if m.mountedByForeignUser(mountRoot) {
		klog.V(3).Infof("devicemonitor: ignoring mount %s owned by another user", mountRoot)
		return
	}

	key := mountRoot
	m.entries[key] = &protocolEntry{
		activationURI: key,
		mountRoot:     mountRoot,
		volumeID:      volumeID,
		hasMount:      true,
	}
	id := mountclient.DeviceId(key)
	dev := mountclient.NewProtocolDevice(m.backend, m.smb, id)
	m.registry.put(dev)
	m.reportLinkage(id, m.entries[key])
	klog.V(3).Infof("devicemonitor: orphan protocol mount added %s", mountRoot)
	m.bus.emit(Event{Type: DeviceAdded, DeviceID: id, Kind: mountclient.KindProtocol})
	m.bus.emit(Event{Type: MountAdded, DeviceID: id, Kind: mountclient.KindProtocol, MountPoint: mountRoot})
}

// settle publishes a DeviceAdded/MountAdded pair once an entry has both
// its volume and mount sides, keyed by activation URI so later property
// reads route to the same mountclient.Device.
func (m *ProtocolMonitor) settle(key string, e *protocolEntry) {
	id := mountclient.DeviceId(key)
	if _, alreadyPublished := m.registry.get(id); alreadyPublished {
		return
	}
	dev := mountclient.NewProtocolDevice(m.backend, m.smb, id)
	m.registry.put(dev)
	m.reportLinkage(id, e)
	klog.V(3).Infof("devicemonitor: protocol device settled %s", key)
	m.bus.emit(Event{Type: DeviceAdded, DeviceID: id, Kind: mountclient.KindProtocol})
	if e.hasMount {
		m.bus.emit(Event{Type: MountAdded, DeviceID: id, Kind: mountclient.KindProtocol, MountPoint: e.mountRoot})
	}
}

// onMountRemoved implements rule 3: if the entry still has a volume side,
// only its mount handle is cleared; otherwise the entry is dropped and a
// deviceRemoved is emitted.
func (m *ProtocolMonitor) onMountRemoved(mountRoot string) {
	if !m.running() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.mountRoot != mountRoot {
			continue
		}
		if e.hasVolume {
			e.hasMount = false
			e.mountRoot = ""
			id := mountclient.DeviceId(key)
			m.reportLinkage(id, e)
			m.bus.emit(Event{Type: MountRemoved, DeviceID: id, Kind: mountclient.KindProtocol})
			return
		}
		delete(m.entries, key)
		id := mountclient.DeviceId(key)
		m.registry.remove(id)
		m.bus.emit(Event{Type: DeviceRemoved, DeviceID: id, Kind: mountclient.KindProtocol})
		return
	}
}

// onVolumeRemoved implements rule 4: every cache entry carrying volumeID
// is dropped and a deviceRemoved emitted for each, whether or not it also
// had a mount.
func (m *ProtocolMonitor) onVolumeRemoved(volumeID string) {
	if !m.running() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if e.volumeID != volumeID {
			continue
		}
		delete(m.entries, key)
		id := mountclient.DeviceId(key)
		m.registry.remove(id)
		m.bus.emit(Event{Type: DeviceRemoved, DeviceID: id, Kind: mountclient.KindProtocol})
	}
}
