package mountclient

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

const (
	udisksService   = "org.freedesktop.UDisks2"
	udisksBlockIface      = "org.freedesktop.UDisks2.Block"
	udisksDriveIface      = "org.freedesktop.UDisks2.Drive"
	udisksFilesystemIface = "org.freedesktop.UDisks2.Filesystem"
	udisksEncryptedIface  = "org.freedesktop.UDisks2.Encrypted"
	udisksJobIface        = "org.freedesktop.UDisks2.Job"

	propsIface = "org.freedesktop.DBus.Properties"
)

// DBusBackend implements Backend against the real system bus udisks2
// service.
type DBusBackend struct {
	conn *dbus.Conn
}

// Conn returns the underlying connection, so sibling backends
// (DBusProtocolBackend, devicemonitor's DBusBlockEventSource) can share
// one bus connection instead of opening their own.
func (b *DBusBackend) Conn() *dbus.Conn { return b.conn }

var _ Backend = (*DBusBackend)(nil)

// NewDBusBackend connects to the system bus and returns a Backend bound
// to it. Callers that only need a fake for tests should use
// internal/fake.MountBackend instead of calling this.
func NewDBusBackend() (*DBusBackend, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("mountclient: connect system bus: %w", err)
	}
	return &DBusBackend{conn: conn}, nil
}

func (b *DBusBackend) object(id DeviceId) dbus.BusObject {
	return b.conn.Object(udisksService, dbus.ObjectPath(id))
}

func (b *DBusBackend) hasInterface(id DeviceId, iface string) bool {
	var managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.conn.Object(udisksService, "/org/freedesktop/UDisks2").Call(
		"org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		klog.V(4).Infof("mountclient: GetManagedObjects: %v", call.Err)
		return false
	}
	if err := call.Store(&managedObjects); err != nil {
		return false
	}
	ifaces, ok := managedObjects[dbus.ObjectPath(id)]
	if !ok {
		return false
	}
	_, ok = ifaces[iface]
	return ok
}

func (b *DBusBackend) HasFilesystemInterface(id DeviceId) bool {
	return b.hasInterface(id, udisksFilesystemIface)
}

func (b *DBusBackend) HasEncryptedInterface(id DeviceId) bool {
	return b.hasInterface(id, udisksEncryptedIface)
}

func (b *DBusBackend) CurrentJob(id DeviceId) (JobInfo, bool) {
	// UDisks2 Job objects are not enumerated here: this always reports
	// no running job, so callers never see a job on id or its drive.
	return JobInfo{}, false
}

func (b *DBusBackend) CurrentMountPoints(id DeviceId) []string {
	v, ok, err := b.GetProperty(id, property.FilesystemMountPoints)
	if err != nil || !ok {
		return nil
	}
	raw, ok := v.([][]byte)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		s := string(b)
		// UDisks2 null-terminates byte-array mount points.
		for len(s) > 0 && s[len(s)-1] == 0 {
			s = s[:len(s)-1]
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

var ifaceForBand = map[string]string{
	property.BandBlock:      udisksBlockIface,
	property.BandDrive:      udisksDriveIface,
	property.BandFilesystem: udisksFilesystemIface,
	property.BandPartition:  "org.freedesktop.UDisks2.Partition",
	property.BandEncrypted:  udisksEncryptedIface,
}

func (b *DBusBackend) GetProperty(id DeviceId, p property.Property) (interface{}, bool, error) {
	iface, ok := ifaceForBand[property.Band(p)]
	if !ok {
		return nil, false, nil
	}
	name := property.Name(p)
	if name == "" {
		return nil, false, nil
	}
	// Strip the "Band." prefix; D-Bus property names are unqualified.
	member := name
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			member = name[i+1:]
			break
		}
	}

	var variant dbus.Variant
	call := b.conn.Object(udisksService, dbus.ObjectPath(id)).Call(propsIface+".Get", 0, iface, member)
	if call.Err != nil {
		return nil, false, nil
	}
	if err := call.Store(&variant); err != nil {
		return nil, false, err
	}
	return variant.Value(), true, nil
}

// withTimeoutDone wraps done so that it fires at most once. ctx is not
// watched: if the D-Bus call hangs, done is never called.
func withTimeoutDone(ctx context.Context, done func(error)) func(error) {
	var fired bool
	return func(err error) {
		if fired {
			return
		}
		fired = true
		done(err)
	}
}

func (b *DBusBackend) callAsync(ctx context.Context, id DeviceId, iface, method string, args []interface{}, done func(error)) {
	done = withTimeoutDone(ctx, done)
	go func() {
		call := b.object(id).Call(iface+"."+method, 0, args...)
		done(call.Err)
	}()
}

func optsToDBusMap(opts MountOptions) map[string]dbus.Variant {
	m := map[string]dbus.Variant{}
	if opts.Force {
		m["force"] = dbus.MakeVariant(true)
	}
	return m
}

func (b *DBusBackend) MountFilesystem(ctx context.Context, id DeviceId, opts MountOptions, done func(string, error)) {
	go func() {
		var mountPoint string
		call := b.object(id).Call(udisksFilesystemIface+".Mount", 0, optsToDBusMap(opts))
		if call.Err != nil {
			done("", call.Err)
			return
		}
		if err := call.Store(&mountPoint); err != nil {
			done("", err)
			return
		}
		done(mountPoint, nil)
	}()
}

func (b *DBusBackend) UnmountFilesystem(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksFilesystemIface, "Unmount", []interface{}{optsToDBusMap(opts)}, done)
}

func (b *DBusBackend) Eject(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksDriveIface, "Eject", []interface{}{optsToDBusMap(opts)}, done)
}

func (b *DBusBackend) PowerOff(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksDriveIface, "PowerOff", []interface{}{optsToDBusMap(opts)}, done)
}

func (b *DBusBackend) Lock(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksEncryptedIface, "Lock", []interface{}{optsToDBusMap(opts)}, done)
}

func (b *DBusBackend) Unlock(ctx context.Context, id DeviceId, passphrase string, opts MountOptions, done func(DeviceId, error)) {
	go func() {
		var cleartextPath dbus.ObjectPath
		call := b.object(id).Call(udisksEncryptedIface+".Unlock", 0, passphrase, optsToDBusMap(opts))
		if call.Err != nil {
			done("", call.Err)
			return
		}
		if err := call.Store(&cleartextPath); err != nil {
			done("", err)
			return
		}
		done(DeviceId(cleartextPath), nil)
	}()
}

func (b *DBusBackend) Rescan(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksBlockIface, "Rescan", []interface{}{optsToDBusMap(opts)}, done)
}

func (b *DBusBackend) RenameFilesystem(ctx context.Context, id DeviceId, newLabel string, opts MountOptions, done func(error)) {
	b.callAsync(ctx, id, udisksFilesystemIface, "SetLabel", []interface{}{newLabel, optsToDBusMap(opts)}, done)
}

// Close releases the underlying D-Bus connection.
func (b *DBusBackend) Close() error {
	return b.conn.Close()
}
