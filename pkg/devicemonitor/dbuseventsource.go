package devicemonitor

import (
	"github.com/godbus/dbus/v5"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

const (
	udisksService      = "org.freedesktop.UDisks2"
	udisksObjectPath    = "/org/freedesktop/UDisks2"
	omIface            = "org.freedesktop.DBus.ObjectManager"
	propsChangedMember = "org.freedesktop.DBus.Properties.PropertiesChanged"
	udisksBlockIface       = "org.freedesktop.UDisks2.Block"
	udisksDriveIface       = "org.freedesktop.UDisks2.Drive"
	udisksFilesystemIface  = "org.freedesktop.UDisks2.Filesystem"
	udisksEncryptedIface   = "org.freedesktop.UDisks2.Encrypted"
)

// DBusBlockEventSource implements BlockEventSource against udisks2's
// real ObjectManager signals on the system bus.
type DBusBlockEventSource struct {
	conn *dbus.Conn
}

var _ BlockEventSource = (*DBusBlockEventSource)(nil)

func NewDBusBlockEventSource(conn *dbus.Conn) *DBusBlockEventSource {
	return &DBusBlockEventSource{conn: conn}
}

func (s *DBusBlockEventSource) Subscribe(
	added func(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool),
	removed func(objectPath string),
	fsAdded func(objectPath string),
	fsRemoved func(objectPath string),
	propChanged func(objectPath string, changed mountclient.PropertyBag),
) {
	s.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(udisksObjectPath),
		dbus.WithMatchInterface(omIface),
	)
	s.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	)

	ch := make(chan *dbus.Signal, 64)
	s.conn.Signal(ch)

	go func() {
		for sig := range ch {
			switch sig.Name {
			case omIface + ".InterfacesAdded":
				s.handleInterfacesAdded(sig, added, fsAdded)
			case omIface + ".InterfacesRemoved":
				s.handleInterfacesRemoved(sig, removed, fsRemoved)
			case propsChangedMember:
				s.handlePropertiesChanged(sig, propChanged)
			}
		}
	}()
}

func (s *DBusBlockEventSource) handleInterfacesAdded(
	sig *dbus.Signal,
	added func(objectPath string, hasFilesystem, hasEncrypted, hasDrive, driveEjectable, driveCanPowerOff bool),
	fsAdded func(objectPath string),
) {
	if len(sig.Body) != 2 {
		return
	}
	objPath, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	if _, ok := ifaces[udisksDriveIface]; ok {
		klog.V(4).Infof("devicemonitor: drive object added %s", objPath)
		return // drives are surfaced through their associated block device, not standalone
	}
	if _, ok := ifaces[udisksBlockIface]; !ok {
		return
	}
	_, hasFilesystem := ifaces[udisksFilesystemIface]
	_, hasEncrypted := ifaces[udisksEncryptedIface]

	hasDrive, ejectable, canPowerOff := s.driveProperties(ifaces[udisksBlockIface])
	added(string(objPath), hasFilesystem, hasEncrypted, hasDrive, ejectable, canPowerOff)
	if hasFilesystem {
		fsAdded(string(objPath))
	}
}

// driveProperties resolves the block object's associated Drive object
// (if any) so the add signal can carry ejectable/power-off capability
// flags without a second round trip once BlockMonitor needs them.
func (s *DBusBlockEventSource) driveProperties(blockProps map[string]dbus.Variant) (hasDrive, ejectable, canPowerOff bool) {
	driveV, ok := blockProps["Drive"]
	if !ok {
		return false, false, false
	}
	drivePath, ok := driveV.Value().(dbus.ObjectPath)
	if !ok || drivePath == "/" {
		return false, false, false
	}

	var ejectableVariant, powerOffVariant dbus.Variant
	obj := s.conn.Object(udisksService, drivePath)
	if call := obj.Call("org.freedesktop.DBus.Properties.Get", 0, udisksDriveIface, "Ejectable"); call.Err == nil {
		call.Store(&ejectableVariant)
	}
	if call := obj.Call("org.freedesktop.DBus.Properties.Get", 0, udisksDriveIface, "CanPowerOff"); call.Err == nil {
		call.Store(&powerOffVariant)
	}
	ej, _ := ejectableVariant.Value().(bool)
	pwr, _ := powerOffVariant.Value().(bool)
	return true, ej, pwr
}

func (s *DBusBlockEventSource) handleInterfacesRemoved(sig *dbus.Signal, removed func(objectPath string), fsRemoved func(objectPath string)) {
	if len(sig.Body) != 2 {
		return
	}
	objPath, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].([]string)
	if !ok {
		return
	}
	for _, iface := range ifaces {
		if iface == udisksFilesystemIface {
			fsRemoved(string(objPath))
		}
		if iface == udisksBlockIface {
			removed(string(objPath))
		}
	}
}

func (s *DBusBlockEventSource) handlePropertiesChanged(sig *dbus.Signal, propChanged func(objectPath string, changed mountclient.PropertyBag)) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	bag := mountclient.PropertyBag{}
	for name, v := range changedProps {
		p, ok := property.FromInterfaceAndName(iface, name)
		if !ok {
			continue
		}
		bag[p] = v.Value()
	}
	if len(bag) == 0 {
		return
	}
	propChanged(string(sig.Path), bag)
}
