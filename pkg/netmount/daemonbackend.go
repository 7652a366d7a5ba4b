package netmount

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
)

const (
	mountControlService = "org.deepin.Filemanager.MountControl"
	mountControlPath    = "/org/deepin/Filemanager/MountControl"
)

// DBusDaemonBackend implements DaemonBackend against the privileged
// mount daemon on the system bus.
type DBusDaemonBackend struct {
	conn *dbus.Conn
}

func NewDBusDaemonBackend(conn *dbus.Conn) *DBusDaemonBackend {
	return &DBusDaemonBackend{conn: conn}
}

var _ DaemonBackend = (*DBusDaemonBackend)(nil)

func (b *DBusDaemonBackend) object() dbus.BusObject {
	return b.conn.Object(mountControlService, mountControlPath)
}

// Available reports whether the daemon owns its well-known name and
// lists fsType among its supported filesystems.
func (b *DBusDaemonBackend) Available(fsType string) bool {
	var owner string
	if err := b.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, mountControlService).Store(&owner); err != nil {
		return false
	}
	var supported []string
	if err := b.object().Call(mountControlService+".SupportedFileSystems", 0).Store(&supported); err != nil {
		return false
	}
	for _, fs := range supported {
		if fs == fsType {
			return true
		}
	}
	return false
}

func (b *DBusDaemonBackend) Mount(ctx context.Context, address string, opts DaemonMountOptions) (string, error) {
	daemonOpts := map[string]dbus.Variant{
		"user":    dbus.MakeVariant(opts.User),
		"domain":  dbus.MakeVariant(opts.Domain),
		"passwd":  dbus.MakeVariant(base64.StdEncoding.EncodeToString([]byte(opts.Passwd))),
		"timeout": dbus.MakeVariant(opts.Timeout),
		"fsType":  dbus.MakeVariant(opts.FsType),
	}
	var result bool
	var mountPoint string
	var errno int32
	var errMsg string
	call := b.object().Call(mountControlService+".Mount", 0, address, daemonOpts)
	if call.Err != nil {
		return "", call.Err
	}
	if err := call.Store(&result, &mountPoint, &errno, &errMsg); err != nil {
		return "", err
	}
	if !result {
		return "", fmt.Errorf("netmount: daemon mount failed (errno %d): %s", errno, errMsg)
	}
	return mountPoint, nil
}

func (b *DBusDaemonBackend) Unmount(ctx context.Context, mountPoint string, fsType string) error {
	daemonOpts := map[string]dbus.Variant{"fsType": dbus.MakeVariant(fsType)}
	var result bool
	var errno int32
	var errMsg string
	call := b.object().Call(mountControlService+".Unmount", 0, mountPoint, daemonOpts)
	if call.Err != nil {
		return call.Err
	}
	if err := call.Store(&result, &errno, &errMsg); err != nil {
		return err
	}
	if !result {
		if errno == -8 {
			return deviceerr.New(deviceerr.UserErrorAuthenticationFailed, errMsg)
		}
		return fmt.Errorf("netmount: daemon unmount failed (errno %d): %s", errno, errMsg)
	}
	return nil
}
