package mountclient

import (
	"context"
	"strings"
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// SMBHandoff is the narrow surface pkg/netmount (C3) exposes back to a
// ProtocolDevice so that mount() can hand an smb:// non-root URI off to
// the credential-bearing network mounter ("mount is split into
// two physical paths").
type SMBHandoff interface {
	Mount(ctx context.Context, address string, opts MountOptions) (string, error)
}

// ProtocolDevice is the Device variant for a user-session mountable
// resource not backed by a local block device (a "protocol
// device"). rename/eject/power_off/lock/unlock/rescan are unsupported
// no-ops that return a user error naming the missing capability
// (UserErrorNotMountable, NotEjectable, NotPoweroffable, NotEncryptable,
// or NoBlock for rescan).
type ProtocolDevice struct {
	id      DeviceId
	backend ProtocolBackend
	smb     SMBHandoff

	mu         sync.Mutex
	mountState MountState
	lastErr    *deviceerr.Error
}

var _ Device = (*ProtocolDevice)(nil)

func NewProtocolDevice(backend ProtocolBackend, smb SMBHandoff, id DeviceId) *ProtocolDevice {
	d := &ProtocolDevice{id: id, backend: backend, smb: smb}
	return d
}

func (d *ProtocolDevice) ID() DeviceId { return d.id }
func (d *ProtocolDevice) Kind() Kind   { return KindProtocol }

// Capabilities derives {Mountable, Unmountable} always. MTP-style
// devices never expose Eject/PowerOff/Lock/Unlock/Rescan; those stay
// documented no-ops below regardless of the underlying linkage.
func (d *ProtocolDevice) Capabilities() CapabilitySet {
	caps := NewCapabilitySet(CapMountable, CapUnmountable)
	return caps
}

func (d *ProtocolDevice) MountState() MountState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mountState
}

func (d *ProtocolDevice) LastError() *deviceerr.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *ProtocolDevice) setErr(e *deviceerr.Error) *deviceerr.Error {
	d.mu.Lock()
	d.lastErr = e
	d.mu.Unlock()
	return e
}

func (d *ProtocolDevice) setMounted(mp string) {
	d.mu.Lock()
	if mp == "" {
		d.mountState = NotMounted()
	} else {
		d.mountState = Mounted(mp)
	}
	d.mu.Unlock()
}

// Linkage exposes this device's volume/mount reconciliation state to the
// monitor.
func (d *ProtocolDevice) Linkage() VolumeLinkage {
	return d.backend.Linkage(d.id)
}

// Get on a protocol device only ever resolves properties in the
// protocol placeholder band; everything else is absent.
func (d *ProtocolDevice) Get(p property.Property) (interface{}, bool) {
	if property.Band(p) != property.BandProtocol {
		d.setErr(deviceerr.New(deviceerr.UserErrorNoBlock, ""))
		return nil, false
	}
	return nil, false
}

// isNonRootSMB reports whether id is an smb:// URI naming a share path
// rather than the bare host root ("scheme == smb and a
// non-root path").
func isNonRootSMB(id DeviceId) (address string, nonRoot bool) {
	s := string(id)
	if !strings.HasPrefix(s, "smb://") {
		return "", false
	}
	rest := strings.TrimPrefix(s, "smb://")
	parts := strings.SplitN(rest, "/", 3)
	// parts[0] = host[,user=...]; a root mount has no share component.
	return s, len(parts) >= 2 && parts[1] != ""
}

func (d *ProtocolDevice) Mount(ctx context.Context, opts MountOptions) (string, error) {
	var result string
	var resultErr error
	done := make(chan struct{})
	d.MountAsync(ctx, opts, func(mp string, err error) {
		result, resultErr = mp, err
		close(done)
	})
	<-done
	return result, resultErr
}

func (d *ProtocolDevice) MountAsync(ctx context.Context, opts MountOptions, done func(string, error)) {
	if st := d.MountState(); st.IsMounted() {
		d.setErr(deviceerr.New(deviceerr.AlreadyMounted, ""))
		done(st.MountPoint(), nil)
		return
	}

	if address, nonRoot := isNonRootSMB(d.id); nonRoot && d.smb != nil && d.backend.SMBDaemonAvailable() {
		mp, err := d.smb.Mount(ctx, address, opts)
		if err != nil {
			done("", d.setErr(toDeviceError(err)))
			return
		}
		d.setMounted(mp)
		done(mp, nil)
		return
	}

	d.backend.MountVolume(ctx, d.id, opts.Operation, opts, func(mp string, err error) {
		if err != nil {
			done("", d.setErr(toDeviceError(err)))
			return
		}
		d.setMounted(mp)
		done(mp, nil)
	})
}

func (d *ProtocolDevice) Unmount(ctx context.Context, opts MountOptions) error {
	done := make(chan error, 1)
	d.UnmountAsync(ctx, opts, func(err error) { done <- err })
	return <-done
}

func (d *ProtocolDevice) UnmountAsync(ctx context.Context, opts MountOptions, done func(error)) {
	if st := d.MountState(); !st.IsMounted() {
		d.setErr(deviceerr.New(deviceerr.UserErrorNotMounted, ""))
		done(nil)
		return
	}
	d.backend.UnmountMount(ctx, d.id, opts, func(err error) {
		if err != nil {
			done(d.setErr(toDeviceError(err)))
			return
		}
		d.setMounted("")
		done(nil)
	})
}

// The following are documented no-ops for protocol devices.

func (d *ProtocolDevice) Rename(ctx context.Context, newLabel string, opts MountOptions) error {
	return d.setErr(deviceerr.New(deviceerr.UserErrorNotMountable, "rename unsupported on protocol devices"))
}

func (d *ProtocolDevice) Eject(ctx context.Context, opts MountOptions) error {
	return d.setErr(deviceerr.New(deviceerr.UserErrorNotEjectable, "eject unsupported on protocol devices"))
}

func (d *ProtocolDevice) PowerOff(ctx context.Context, opts MountOptions) error {
	return d.setErr(deviceerr.New(deviceerr.UserErrorNotPoweroffable, "power-off unsupported on protocol devices"))
}

func (d *ProtocolDevice) Lock(ctx context.Context, opts MountOptions) error {
	return d.setErr(deviceerr.New(deviceerr.UserErrorNotEncryptable, "lock unsupported on protocol devices"))
}

func (d *ProtocolDevice) Unlock(ctx context.Context, passphrase string, opts MountOptions) (DeviceId, error) {
	return "", d.setErr(deviceerr.New(deviceerr.UserErrorNotEncryptable, "unlock unsupported on protocol devices"))
}

func (d *ProtocolDevice) Rescan(ctx context.Context, opts MountOptions) error {
	return d.setErr(deviceerr.New(deviceerr.UserErrorNoBlock, "rescan unsupported on protocol devices"))
}
