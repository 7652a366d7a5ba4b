package devicemonitor

import (
	"github.com/godbus/dbus/v5"
	"k8s.io/klog/v2"
)

const (
	gvfsDaemonService = "org.gtk.vfs.Daemon"
	gvfsDaemonObj     = "/org/gtk/vfs/mounttracker"
	gvfsDaemonIface   = "org.gtk.vfs.MountTracker"
)

// DBusProtocolEventSource implements ProtocolEventSource against gvfs's
// session-bus mount tracker: VolumeAdded/VolumeRemoved/Mounted/Unmounted
// signals on org.gtk.vfs.MountTracker.
type DBusProtocolEventSource struct {
	conn *dbus.Conn
}

var _ ProtocolEventSource = (*DBusProtocolEventSource)(nil)

func NewDBusProtocolEventSource(conn *dbus.Conn) *DBusProtocolEventSource {
	return &DBusProtocolEventSource{conn: conn}
}

func (s *DBusProtocolEventSource) Subscribe(
	volumeAdded func(volumeID, activationURI string, hasDrive bool),
	volumeRemoved func(volumeID string),
	mountAdded func(mountRoot, sourceDevicePath, volumeID string),
	mountRemoved func(mountRoot string),
) {
	s.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(gvfsDaemonObj),
		dbus.WithMatchInterface(gvfsDaemonIface),
	)

	ch := make(chan *dbus.Signal, 64)
	s.conn.Signal(ch)

	go func() {
		for sig := range ch {
			switch sig.Name {
			case gvfsDaemonIface + ".VolumeAdded":
				s.handleVolumeAdded(sig, volumeAdded)
			case gvfsDaemonIface + ".VolumeRemoved":
				s.handleVolumeRemoved(sig, volumeRemoved)
			case gvfsDaemonIface + ".Mounted":
				s.handleMounted(sig, mountAdded)
			case gvfsDaemonIface + ".Unmounted":
				s.handleUnmounted(sig, mountRemoved)
			}
		}
	}()
}

func (s *DBusProtocolEventSource) handleVolumeAdded(sig *dbus.Signal, volumeAdded func(volumeID, activationURI string, hasDrive bool)) {
	if len(sig.Body) != 3 {
		klog.V(4).Infof("devicemonitor: malformed VolumeAdded signal: %v", sig.Body)
		return
	}
	volumeID, ok1 := sig.Body[0].(string)
	activationURI, ok2 := sig.Body[1].(string)
	hasDrive, ok3 := sig.Body[2].(bool)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	volumeAdded(volumeID, activationURI, hasDrive)
}

func (s *DBusProtocolEventSource) handleVolumeRemoved(sig *dbus.Signal, volumeRemoved func(volumeID string)) {
	if len(sig.Body) != 1 {
		return
	}
	if volumeID, ok := sig.Body[0].(string); ok {
		volumeRemoved(volumeID)
	}
}

func (s *DBusProtocolEventSource) handleMounted(sig *dbus.Signal, mountAdded func(mountRoot, sourceDevicePath, volumeID string)) {
	if len(sig.Body) != 3 {
		return
	}
	mountRoot, ok1 := sig.Body[0].(string)
	sourceDevicePath, ok2 := sig.Body[1].(string)
	volumeID, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	mountAdded(mountRoot, sourceDevicePath, volumeID)
}

func (s *DBusProtocolEventSource) handleUnmounted(sig *dbus.Signal, mountRemoved func(mountRoot string)) {
	if len(sig.Body) != 1 {
		return
	}
	if mountRoot, ok := sig.Body[0].(string); ok {
		mountRemoved(mountRoot)
	}
}
