package fake

import (
	"context"
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// ProtocolBackend is a scriptable fake of mountclient.ProtocolBackend.
type ProtocolBackend struct {
	mu sync.Mutex

	LinkageByID map[mountclient.DeviceId]mountclient.VolumeLinkage
	DaemonUp    bool

	MountErr    map[mountclient.DeviceId]error
	MountResult map[mountclient.DeviceId]string
	Mounted     map[mountclient.DeviceId]string
}

func NewProtocolBackend() *ProtocolBackend {
	return &ProtocolBackend{
		LinkageByID: map[mountclient.DeviceId]mountclient.VolumeLinkage{},
		MountErr:    map[mountclient.DeviceId]error{},
		MountResult: map[mountclient.DeviceId]string{},
		Mounted:     map[mountclient.DeviceId]string{},
	}
}

var _ mountclient.ProtocolBackend = (*ProtocolBackend)(nil)

func (f *ProtocolBackend) Linkage(id mountclient.DeviceId) mountclient.VolumeLinkage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LinkageByID[id]
}

func (f *ProtocolBackend) SMBDaemonAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DaemonUp
}

func (f *ProtocolBackend) MountVolume(ctx context.Context, id mountclient.DeviceId, op *mountclient.MountOperation, opts mountclient.MountOptions, done func(string, error)) {
	f.mu.Lock()
	err := f.MountErr[id]
	mp := f.MountResult[id]
	f.mu.Unlock()
	if err != nil {
		done("", err)
		return
	}
	if mp == "" {
		mp = "/run/user/1000/gvfs/fake-" + string(id)
	}
	f.mu.Lock()
	f.Mounted[id] = mp
	f.mu.Unlock()
	done(mp, nil)
}

func (f *ProtocolBackend) UnmountMount(ctx context.Context, id mountclient.DeviceId, opts mountclient.MountOptions, done func(error)) {
	f.mu.Lock()
	delete(f.Mounted, id)
	f.mu.Unlock()
	done(nil)
}
