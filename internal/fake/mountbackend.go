// Package fake provides in-memory fakes for the toolkit's external
// collaborator interfaces (MountBackend, SecretStore, DeviceHandle,
// IndexReader): tests exercise real package logic against a scriptable
// fake instead of the real D-Bus system bus, gvfs session, secret
// service, or optical hardware.
package fake

import (
	"context"
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// MountBackend is a scriptable fake of mountclient.Backend.
type MountBackend struct {
	mu sync.Mutex

	Filesystems map[mountclient.DeviceId]bool
	Encrypted   map[mountclient.DeviceId]bool
	MountPoints map[mountclient.DeviceId][]string
	Properties  map[mountclient.DeviceId]map[property.Property]interface{}
	Jobs        map[mountclient.DeviceId]mountclient.JobInfo

	// MountErr/UnmountErr, if set, are returned by every Mount/Unmount
	// call for the matching device id.
	MountErr   map[mountclient.DeviceId]error
	UnmountErr map[mountclient.DeviceId]error

	// MountResult overrides the mount point reported on success.
	MountResult map[mountclient.DeviceId]string
}

func NewMountBackend() *MountBackend {
	return &MountBackend{
		Filesystems: map[mountclient.DeviceId]bool{},
		Encrypted:   map[mountclient.DeviceId]bool{},
		MountPoints: map[mountclient.DeviceId][]string{},
		Properties:  map[mountclient.DeviceId]map[property.Property]interface{}{},
		Jobs:        map[mountclient.DeviceId]mountclient.JobInfo{},
		MountErr:    map[mountclient.DeviceId]error{},
		UnmountErr:  map[mountclient.DeviceId]error{},
		MountResult: map[mountclient.DeviceId]string{},
	}
}

var _ mountclient.Backend = (*MountBackend)(nil)

func (f *MountBackend) HasFilesystemInterface(id mountclient.DeviceId) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Filesystems[id]
}

func (f *MountBackend) HasEncryptedInterface(id mountclient.DeviceId) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Encrypted[id]
}

func (f *MountBackend) CurrentJob(id mountclient.DeviceId) (mountclient.JobInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.Jobs[id]
	return j, ok
}

func (f *MountBackend) CurrentMountPoints(id mountclient.DeviceId) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.MountPoints[id]...)
}

func (f *MountBackend) GetProperty(id mountclient.DeviceId, p property.Property) (interface{}, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	props, ok := f.Properties[id]
	if !ok {
		return nil, false, nil
	}
	v, ok := props[p]
	return v, ok, nil
}

func (f *MountBackend) MountFilesystem(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(string, error)) {
	f.mu.Lock()
	err := f.MountErr[id]
	mp := f.MountResult[id]
	f.mu.Unlock()
	if mp == "" {
		mp = "/media/fake" + string(id)
	}
	if err != nil {
		done("", err)
		return
	}
	f.mu.Lock()
	f.MountPoints[id] = []string{mp}
	f.mu.Unlock()
	done(mp, nil)
}

func (f *MountBackend) UnmountFilesystem(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	f.mu.Lock()
	err := f.UnmountErr[id]
	f.mu.Unlock()
	if err != nil {
		done(err)
		return
	}
	f.mu.Lock()
	delete(f.MountPoints, id)
	f.mu.Unlock()
	done(nil)
}

func (f *MountBackend) Eject(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	done(nil)
}

func (f *MountBackend) PowerOff(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	done(nil)
}

func (f *MountBackend) Lock(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	done(nil)
}

func (f *MountBackend) Unlock(ctx context.Context, id mountclient.DeviceId, passphrase string, opts mountclient.MountOptions, done func(mountclient.DeviceId, error)) {
	done(mountclient.DeviceId(string(id)+"_cleartext"), nil)
}

func (f *MountBackend) Rescan(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	done(nil)
}

func (f *MountBackend) RenameFilesystem(ctx context.Context, id mountclient.DeviceId, newLabel string, opts mountclient.MountOptions, done func(error)) {
	done(nil)
}
