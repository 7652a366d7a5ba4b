package mountclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

type fakeSMB struct {
	mountPoint string
	err        error
	called     bool
}

func (f *fakeSMB) Mount(ctx context.Context, address string, opts mountclient.MountOptions) (string, error) {
	f.called = true
	return f.mountPoint, f.err
}

func TestProtocolDevice_NonRootSMBHandsOffToNetworkMounter(t *testing.T) {
	backend := fake.NewProtocolBackend()
	backend.DaemonUp = true
	smb := &fakeSMB{mountPoint: "/run/user/1000/gvfs/smb-share:server=h,share=s"}

	id := mountclient.DeviceId("smb://host/share")
	dev := mountclient.NewProtocolDevice(backend, smb, id)

	mp, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)
	assert.True(t, smb.called)
	assert.Equal(t, "/run/user/1000/gvfs/smb-share:server=h,share=s", mp)
}

func TestProtocolDevice_RootSMBUsesGvfsPath(t *testing.T) {
	backend := fake.NewProtocolBackend()
	backend.DaemonUp = true
	backend.MountResult["smb://host"] = "/run/user/1000/gvfs/smb-share:server=h"
	smb := &fakeSMB{}

	id := mountclient.DeviceId("smb://host")
	dev := mountclient.NewProtocolDevice(backend, smb, id)

	mp, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)
	assert.False(t, smb.called)
	assert.Equal(t, "/run/user/1000/gvfs/smb-share:server=h", mp)
}

func TestProtocolDevice_FTPAlwaysUsesGvfsPath(t *testing.T) {
	backend := fake.NewProtocolBackend()
	backend.DaemonUp = true
	backend.MountResult["ftp://host/pub"] = "/run/user/1000/gvfs/ftp-share"
	smb := &fakeSMB{}

	id := mountclient.DeviceId("ftp://host/pub")
	dev := mountclient.NewProtocolDevice(backend, smb, id)

	mp, err := dev.Mount(context.Background(), mountclient.MountOptions{})
	require.NoError(t, err)
	assert.False(t, smb.called)
	assert.Equal(t, "/run/user/1000/gvfs/ftp-share", mp)
}

func TestProtocolDevice_UnsupportedOperationsAreNoOps(t *testing.T) {
	backend := fake.NewProtocolBackend()
	dev := mountclient.NewProtocolDevice(backend, nil, "mtp://phone")

	require.Error(t, dev.Eject(context.Background(), mountclient.MountOptions{}))
	require.Error(t, dev.PowerOff(context.Background(), mountclient.MountOptions{}))
	require.Error(t, dev.Lock(context.Background(), mountclient.MountOptions{}))
	require.Error(t, dev.Rescan(context.Background(), mountclient.MountOptions{}))
	_, err := dev.Unlock(context.Background(), "pw", mountclient.MountOptions{})
	require.Error(t, err)
}
