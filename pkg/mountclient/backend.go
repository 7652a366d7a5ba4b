package mountclient

import (
	"context"

	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// JobInfo describes a backend job (Job object in udisks2 terms) already
// running against a device or its drive. Used to fail fast instead of
// queuing a second operation: callers fail fast reporting that job's
// operation code.
type JobInfo struct {
	Operation string // e.g. "filesystem-mount", "drive-eject"
	ObjectID  string
}

// Backend is the abstraction over the system mount service that
// BlockDevice and ProtocolDevice are built on. The concrete
// implementation (DBusBackend) talks to udisks2 over the system
// D-Bus; tests use internal/fake.MountBackend instead.
//
// Every method that can block (mount/unmount/eject/...) takes a
// context for cancellation/deadline and is safe to call from the
// async-to-sync adapter, which waits on a channel.
type Backend interface {
	// HasFilesystemInterface reports whether id exposes a Filesystem
	// sub-interface (required for Mount/Unmount/Rename to be meaningful).
	HasFilesystemInterface(id DeviceId) bool

	// HasEncryptedInterface reports whether id exposes an Encrypted
	// sub-interface (required for Lock/Unlock).
	HasEncryptedInterface(id DeviceId) bool

	// CurrentJob returns the job currently running against id or its
	// drive, if any.
	CurrentJob(id DeviceId) (JobInfo, bool)

	// CurrentMountPoints returns every mount point the Filesystem
	// interface currently reports for id, in backend-reported order.
	CurrentMountPoints(id DeviceId) []string

	// GetProperty performs an on-demand property read, resolving the
	// correct sub-interface by property.Band(p). ok is false if that
	// sub-interface is absent.
	GetProperty(id DeviceId, p property.Property) (value interface{}, ok bool, err error)

	// MountFilesystem starts an async filesystem mount and reports
	// completion on done(mountPoint, err).
	MountFilesystem(ctx context.Context, id DeviceId, opts MountOptions, done func(string, error))

	// UnmountFilesystem starts an async filesystem unmount.
	UnmountFilesystem(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// Eject starts an async eject of id's drive.
	Eject(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// PowerOff starts an async power-off of id's drive.
	PowerOff(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// Lock starts an async lock of the Encrypted interface.
	Lock(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// Unlock starts an async unlock, reporting the cleartext device id.
	Unlock(ctx context.Context, id DeviceId, passphrase string, opts MountOptions, done func(DeviceId, error))

	// Rescan starts an async re-read of partition table / size.
	Rescan(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// RenameFilesystem starts an async filesystem label rename.
	RenameFilesystem(ctx context.Context, id DeviceId, newLabel string, opts MountOptions, done func(error))
}

// ProtocolBackend is the protocol-device counterpart of Backend, covering
// the gvolume-monitor surface.
type ProtocolBackend interface {
	// Linkage returns the current volume/mount linkage for id.
	Linkage(id DeviceId) VolumeLinkage

	// MountVolume drives the backend's volume-mount with a MountOperation
	// routing ask-password/ask-question upcalls to op's callbacks.
	MountVolume(ctx context.Context, id DeviceId, op *MountOperation, opts MountOptions, done func(string, error))

	// UnmountMount unmounts the mount side of id.
	UnmountMount(ctx context.Context, id DeviceId, opts MountOptions, done func(error))

	// SMBDaemonAvailable reports whether the privileged mount daemon is
	// registered on the system bus and lists cifs among its supported
	// filesystems.
	SMBDaemonAvailable() bool
}
