package mountclient

import (
	"context"
	"sync"

	"github.com/sony/gobreaker"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// BlockDevice is the Device variant backed by a local block interface
// (a "block device"). A BlockDevice with no filesystem
// interface on the backend is still a valid Device: NewBlockDevice
// accepts it and grants it no Mountable/Unmountable/Renamable
// capability.
type BlockDevice struct {
	id      DeviceId
	backend Backend
	caps    CapabilitySet
	breaker *gobreaker.TwoStepCircuitBreaker

	mu         sync.Mutex
	mountState MountState
	lastErr    *deviceerr.Error
}

var _ BlockCapableDevice = (*BlockDevice)(nil)

// NewBlockDevice constructs a BlockDevice handle for id. hasDrive tells
// the caller-computed capability set whether id sits under a Drive
// object (a block has a drive iff
// its Drive property resolves to a non-"/" object path; loop devices
// report "/").
func NewBlockDevice(backend Backend, id DeviceId, hasDrive, driveEjectable, driveCanPowerOff bool) *BlockDevice {
	caps := NewCapabilitySet()
	if backend.HasFilesystemInterface(id) {
		caps[CapMountable] = true
		caps[CapUnmountable] = true
		caps[CapRenamable] = true
	}
	if backend.HasEncryptedInterface(id) {
		caps[CapLockable] = true
		caps[CapUnlockable] = true
	}
	if hasDrive {
		caps[CapRescanable] = true
		if driveEjectable {
			caps[CapEjectable] = true
		}
		if driveCanPowerOff {
			caps[CapPowerOffable] = true
		}
	}

	d := &BlockDevice{id: id, backend: backend, caps: caps, breaker: newDeviceBreaker(id)}
	if mps := backend.CurrentMountPoints(id); len(mps) > 0 {
		d.mountState = Mounted(canonicalMountPoint(mps))
	}
	return d
}

func (d *BlockDevice) ID() DeviceId              { return d.id }
func (d *BlockDevice) Kind() Kind                 { return KindBlock }
func (d *BlockDevice) Capabilities() CapabilitySet { return d.caps }

func (d *BlockDevice) MountState() MountState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mountState
}

func (d *BlockDevice) LastError() *deviceerr.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *BlockDevice) setErr(e *deviceerr.Error) *deviceerr.Error {
	d.mu.Lock()
	d.lastErr = e
	d.mu.Unlock()
	return e
}

func (d *BlockDevice) setMounted(mp string) {
	d.mu.Lock()
	if mp == "" {
		d.mountState = NotMounted()
	} else {
		d.mountState = Mounted(mp)
	}
	d.mu.Unlock()
}

// Get looks up the right sub-interface by property band,
// returning (nil, false) if that sub-interface is absent on this
// device, and recording the matching UserErrorNo* sticky error.
func (d *BlockDevice) Get(p property.Property) (interface{}, bool) {
	switch property.Band(p) {
	case property.BandEncrypted:
		if !d.caps.Has(CapLockable) {
			d.setErr(deviceerr.New(deviceerr.UserErrorNotEncryptable, ""))
			return nil, false
		}
	case property.BandFilesystem:
		if !d.caps.Has(CapMountable) {
			d.setErr(deviceerr.New(deviceerr.UserErrorNotMountable, ""))
			return nil, false
		}
	case property.BandPartition:
		if !d.caps.Has(CapRescanable) {
			d.setErr(deviceerr.New(deviceerr.UserErrorNoPartition, ""))
			return nil, false
		}
	case property.BandDrive:
		if !d.caps.Has(CapRescanable) {
			d.setErr(deviceerr.New(deviceerr.UserErrorNoDriver, ""))
			return nil, false
		}
	}

	v, ok, err := d.backend.GetProperty(d.id, p)
	if err != nil {
		d.setErr(deviceerr.New(deviceerr.UnhandledError, err.Error()))
		return nil, false
	}
	if !ok {
		d.setErr(deviceerr.New(deviceerr.UserErrorNoBlock, ""))
		return nil, false
	}
	return v, true
}

func (d *BlockDevice) checkNoJob() *deviceerr.Error {
	if job, busy := d.backend.CurrentJob(d.id); busy {
		klog.V(3).Infof("mountclient: %s busy with job %s", d.id, job.Operation)
		return deviceerr.New(deviceerr.DeviceBusy, job.Operation)
	}
	return nil
}

func (d *BlockDevice) Mount(ctx context.Context, opts MountOptions) (string, error) {
	return syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.MountAsync(ctx, opts, done)
	})
}

func (d *BlockDevice) MountAsync(ctx context.Context, opts MountOptions, done func(string, error)) {
	if !d.caps.Has(CapMountable) {
		err := d.setErr(deviceerr.New(deviceerr.UserErrorNotMountable, ""))
		done("", err)
		return
	}
	if st := d.MountState(); st.IsMounted() {
		d.setErr(deviceerr.New(deviceerr.AlreadyMounted, ""))
		done(st.MountPoint(), nil)
		return
	}
	if jobErr := d.checkNoJob(); jobErr != nil {
		done("", d.setErr(jobErr))
		return
	}
	report, err := d.breaker.Allow()
	if err != nil {
		done("", d.setErr(breakerBusyError()))
		return
	}
	d.backend.MountFilesystem(ctx, d.id, opts, func(mp string, err error) {
		report(err == nil)
		if err != nil {
			done("", d.setErr(toDeviceError(err)))
			return
		}
		d.setMounted(mp)
		d.mu.Lock()
		d.lastErr = nil
		d.mu.Unlock()
		done(mp, nil)
	})
}

func (d *BlockDevice) Unmount(ctx context.Context, opts MountOptions) error {
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.UnmountAsync(ctx, opts, func(err error) { done("", err) })
	})
	return err
}

func (d *BlockDevice) UnmountAsync(ctx context.Context, opts MountOptions, done func(error)) {
	if !d.caps.Has(CapUnmountable) {
		done(d.setErr(deviceerr.New(deviceerr.UserErrorNotMountable, "")))
		return
	}
	if st := d.MountState(); !st.IsMounted() {
		// Non-fatal: sticky NotMounted, but caller sees success.
		d.setErr(deviceerr.New(deviceerr.UserErrorNotMounted, ""))
		done(nil)
		return
	}
	if jobErr := d.checkNoJob(); jobErr != nil {
		done(d.setErr(jobErr))
		return
	}
	report, err := d.breaker.Allow()
	if err != nil {
		done(d.setErr(breakerBusyError()))
		return
	}
	d.backend.UnmountFilesystem(ctx, d.id, opts, func(err error) {
		report(err == nil)
		if err != nil {
			done(d.setErr(toDeviceError(err)))
			return
		}
		d.setMounted("")
		d.mu.Lock()
		d.lastErr = nil
		d.mu.Unlock()
		done(nil)
	})
}

func (d *BlockDevice) Eject(ctx context.Context, opts MountOptions) error {
	if !d.caps.Has(CapEjectable) {
		return d.setErr(deviceerr.New(deviceerr.UserErrorNotEjectable, ""))
	}
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.Eject(ctx, d.id, opts, func(err error) { done("", err) })
	})
	if err != nil {
		return d.setErr(toDeviceError(err))
	}
	return nil
}

func (d *BlockDevice) PowerOff(ctx context.Context, opts MountOptions) error {
	if !d.caps.Has(CapPowerOffable) {
		return d.setErr(deviceerr.New(deviceerr.UserErrorNotPoweroffable, ""))
	}
	if jobErr := d.checkNoJob(); jobErr != nil {
		return d.setErr(jobErr)
	}
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.PowerOff(ctx, d.id, opts, func(err error) { done("", err) })
	})
	if err != nil {
		return d.setErr(toDeviceError(err))
	}
	return nil
}

func (d *BlockDevice) Lock(ctx context.Context, opts MountOptions) error {
	if !d.caps.Has(CapLockable) {
		return d.setErr(deviceerr.New(deviceerr.UserErrorNotEncryptable, ""))
	}
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.Lock(ctx, d.id, opts, func(err error) { done("", err) })
	})
	if err != nil {
		return d.setErr(toDeviceError(err))
	}
	return nil
}

func (d *BlockDevice) Unlock(ctx context.Context, passphrase string, opts MountOptions) (DeviceId, error) {
	if !d.caps.Has(CapUnlockable) {
		return "", d.setErr(deviceerr.New(deviceerr.UserErrorNotEncryptable, ""))
	}
	var cleartext DeviceId
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.Unlock(ctx, d.id, passphrase, opts, func(ct DeviceId, err error) {
			cleartext = ct
			done(string(ct), err)
		})
	})
	if err != nil {
		return "", d.setErr(toDeviceError(err))
	}
	return cleartext, nil
}

func (d *BlockDevice) Rescan(ctx context.Context, opts MountOptions) error {
	if !d.caps.Has(CapRescanable) {
		return d.setErr(deviceerr.New(deviceerr.UserErrorNoBlock, ""))
	}
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.Rescan(ctx, d.id, opts, func(err error) { done("", err) })
	})
	if err != nil {
		return d.setErr(toDeviceError(err))
	}
	return nil
}

func (d *BlockDevice) Rename(ctx context.Context, newLabel string, opts MountOptions) error {
	if !d.caps.Has(CapRenamable) {
		return d.setErr(deviceerr.New(deviceerr.UserErrorNotMountable, ""))
	}
	if st := d.MountState(); st.IsMounted() {
		return d.setErr(deviceerr.New(deviceerr.AlreadyMounted, "labels can only be changed unmounted"))
	}
	_, err := syncFromAsync(ctx, opts, func(done func(string, error)) {
		d.backend.RenameFilesystem(ctx, d.id, newLabel, opts, func(err error) { done("", err) })
	})
	if err != nil {
		return d.setErr(toDeviceError(err))
	}
	return nil
}

// toDeviceError coerces a plain error from the Backend into a
// *deviceerr.Error, mapping unknown errors to UnhandledError (the
// "Error taxonomy").
func toDeviceError(err error) *deviceerr.Error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*deviceerr.Error); ok {
		return de
	}
	return deviceerr.New(deviceerr.UnhandledError, err.Error())
}
