package mountclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
)

const (
	gvfsService         = "org.gtk.vfs.Daemon"
	gvfsMountTrackerObj = "/org/gtk/vfs/mounttracker"
	gvfsMountTrackerIf  = "org.gtk.vfs.MountTracker"
	gvfsMountOpIf       = "org.gtk.vfs.MountOperation"

	mountDaemonService = "org.deepin.Filemanager.MountControl"
)

// DBusProtocolBackend implements ProtocolBackend against gvfs's session
// bus mount tracker, the only transport for protocol (smb/sftp/ftp/dav)
// resources that aren't represented by a local block device.
type DBusProtocolBackend struct {
	conn *dbus.Conn

	mu       sync.Mutex
	linkages map[DeviceId]VolumeLinkage

	opCount int64
}

var _ ProtocolBackend = (*DBusProtocolBackend)(nil)

// NewDBusProtocolBackend builds a backend sharing conn with DBusBackend;
// linkages is populated by devicemonitor's ProtocolMonitor as it
// reconciles gvfs's volume/mount streams, so the backend only needs to
// be told about it rather than re-deriving it.
func NewDBusProtocolBackend(conn *dbus.Conn) *DBusProtocolBackend {
	return &DBusProtocolBackend{conn: conn, linkages: map[DeviceId]VolumeLinkage{}}
}

// SetLinkage records id's current volume/mount linkage, called by
// ProtocolMonitor whenever its own reconciled view changes.
func (b *DBusProtocolBackend) SetLinkage(id DeviceId, l VolumeLinkage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linkages[id] = l
}

func (b *DBusProtocolBackend) Linkage(id DeviceId) VolumeLinkage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linkages[id]
}

type protocolMountOperationObject struct {
	op *MountOperation
}

func (o *protocolMountOperationObject) AskPassword(message, defaultUser, defaultDomain string, flags uint32) (string, string, string, uint32, bool, *dbus.Error) {
	if o.op == nil || o.op.AskPassword == nil {
		return "", "", "", 0, true, nil
	}
	user, domain, password, anonymous, abort := o.op.AskPassword(message, defaultUser, defaultDomain, true)
	anonFlag := uint32(0)
	if anonymous {
		anonFlag = 1
	}
	return password, user, domain, anonFlag, abort, nil
}

func (o *protocolMountOperationObject) AskQuestion(message string, choices []string) (int32, bool, *dbus.Error) {
	if o.op == nil || o.op.AskQuestion == nil {
		return 0, true, nil
	}
	choice, abort := o.op.AskQuestion(message, choices)
	return int32(choice), abort, nil
}

func (b *DBusProtocolBackend) MountVolume(ctx context.Context, id DeviceId, op *MountOperation, opts MountOptions, done func(string, error)) {
	go func() {
		objPath := dbus.ObjectPath(fmt.Sprintf("/org/deepin/dfmtoolkit/MountOperation%d", atomic.AddInt64(&b.opCount, 1)))
		exported := &protocolMountOperationObject{op: op}
		if err := b.conn.Export(exported, objPath, gvfsMountOpIf); err != nil {
			done("", fmt.Errorf("mountclient: export mount operation: %w", err))
			return
		}
		defer b.conn.Export(nil, objPath, gvfsMountOpIf)

		call := b.conn.Object(gvfsService, gvfsMountTrackerObj).CallWithContext(ctx,
			gvfsMountTrackerIf+".MountLocation", 0, string(id), objPath, b.conn.Names()[0])
		if call.Err != nil {
			done("", call.Err)
			return
		}
		var mountRoot string
		call.Store(&mountRoot)
		done(mountRoot, nil)
	}()
}

func (b *DBusProtocolBackend) UnmountMount(ctx context.Context, id DeviceId, opts MountOptions, done func(error)) {
	go func() {
		call := b.conn.Object(gvfsService, gvfsMountTrackerObj).CallWithContext(ctx,
			gvfsMountTrackerIf+".UnmountLocation", 0, string(id))
		done(call.Err)
	}()
}

func (b *DBusProtocolBackend) SMBDaemonAvailable() bool {
	var names []string
	call := b.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0)
	if call.Err != nil {
		return false
	}
	if err := call.Store(&names); err != nil {
		return false
	}
	for _, n := range names {
		if n == mountDaemonService {
			return true
		}
	}
	return false
}
