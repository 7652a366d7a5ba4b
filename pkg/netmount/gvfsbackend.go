package netmount

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

const (
	gvfsService        = "org.gtk.vfs.Daemon"
	gvfsMountTrackerObj = "/org/gtk/vfs/mounttracker"
	gvfsMountTrackerIf  = "org.gtk.vfs.MountTracker"
	gvfsMountOpIf       = "org.gtk.vfs.MountOperation"
)

// DBusGvfsBackend implements GvfsBackend against the session bus's
// gvfs daemon, the same service udisks2-adjacent desktops use for
// every non-block mount (smb, sftp, ftp, dav, afp...).
type DBusGvfsBackend struct {
	conn    *dbus.Conn
	opCount int64
}

var _ GvfsBackend = (*DBusGvfsBackend)(nil)

func NewDBusGvfsBackend(conn *dbus.Conn) *DBusGvfsBackend {
	return &DBusGvfsBackend{conn: conn}
}

// mountOperationObject is exported on our own bus name for the
// duration of one Mount() call, answering gvfs's ask_password /
// ask_question upcalls by delegating to the mountclient.MountOperation
// callbacks threaded in by the caller.
type mountOperationObject struct {
	op *mountclient.MountOperation
}

func (o *mountOperationObject) AskPassword(messsage, defaultUser, defaultDomain string, flags uint32) (string, string, string, uint32, bool, *dbus.Error) {
	if o.op == nil || o.op.AskPassword == nil {
		return "", "", "", 0, true, nil
	}
	user, domain, password, anonymous, abort := o.op.AskPassword(messsage, defaultUser, defaultDomain, true)
	return password, user, domain, boolToGvfsFlags(anonymous), abort, nil
}

func (o *mountOperationObject) AskQuestion(message string, choices []string) (int32, bool, *dbus.Error) {
	if o.op == nil || o.op.AskQuestion == nil {
		return 0, true, nil
	}
	choice, abort := o.op.AskQuestion(message, choices)
	return int32(choice), abort, nil
}

func boolToGvfsFlags(anonymous bool) uint32 {
	if anonymous {
		return 1
	}
	return 0
}

// Mount drives gvfs's MountLocation call for a URI-addressable
// resource, exporting a per-call MountOperation object so gvfs can ask
// for credentials interactively if the backend didn't already resolve
// them.
func (b *DBusGvfsBackend) Mount(ctx context.Context, id mountclient.DeviceId, op *mountclient.MountOperation, opts mountclient.MountOptions) (string, error) {
	objPath := dbus.ObjectPath(fmt.Sprintf("/org/deepin/dfmtoolkit/MountOperation%d", atomic.AddInt64(&b.opCount, 1)))
	exported := &mountOperationObject{op: op}
	if err := b.conn.Export(exported, objPath, gvfsMountOpIf); err != nil {
		return "", fmt.Errorf("netmount: export mount operation: %w", err)
	}
	defer b.conn.Export(nil, objPath, gvfsMountOpIf)

	call := b.conn.Object(gvfsService, gvfsMountTrackerObj).CallWithContext(ctx,
		gvfsMountTrackerIf+".MountLocation", 0, string(id), objPath, b.conn.Names()[0])
	if call.Err != nil {
		return "", fmt.Errorf("netmount: gvfs MountLocation: %w", call.Err)
	}

	var mountRoot string
	if err := call.Store(&mountRoot); err != nil {
		klog.V(4).Infof("netmount: gvfs MountLocation returned no mount root path: %v", err)
	}
	return mountRoot, nil
}
