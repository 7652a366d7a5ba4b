package netmount_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/netmount"
)

func TestMounter_UsesGvfsWhenDaemonUnavailable(t *testing.T) {
	daemon := fake.NewDaemonBackend()
	gvfs := fake.NewGvfsBackend()
	gvfs.MountResult = "/run/user/1000/gvfs/smb-share:server=h,share=s"
	secrets := fake.NewSecretStore()
	prompter := fake.NewPrompter()

	m := netmount.NewMounter(daemon, gvfs, secrets, prompter, "alice")
	mp, err := m.Mount(context.Background(), "smb://h/s", mountclient.MountOptions{})
	require.NoError(t, err)
	assert.True(t, gvfs.Called)
	assert.Equal(t, "/run/user/1000/gvfs/smb-share:server=h,share=s", mp)
}

func TestMounter_StoredCredentialSucceeds(t *testing.T) {
	daemon := fake.NewDaemonBackend()
	daemon.AvailableFS["cifs"] = true
	daemon.MountResult = "/media/alice/smbmounts/h-s"
	gvfs := fake.NewGvfsBackend()
	secrets := fake.NewSecretStore()
	secrets.Creds["h/smb"] = []netmount.Credential{{User: "alice", Password: "hunter2"}}
	prompter := fake.NewPrompter()

	m := netmount.NewMounter(daemon, gvfs, secrets, prompter, "alice")
	mp, err := m.Mount(context.Background(), "smb://h/s", mountclient.MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/media/alice/smbmounts/h-s", mp)
	assert.False(t, gvfs.Called)
	assert.Zero(t, prompter.CallCount)
}

func TestMounter_FallsBackToPromptWhenNoStoredCredentialWorks(t *testing.T) {
	daemon := fake.NewDaemonBackend()
	daemon.AvailableFS["cifs"] = true
	daemon.MountErr = []error{errors.New("bad password")}
	daemon.MountResult = "/media/alice/smbmounts/h-s"
	gvfs := fake.NewGvfsBackend()
	secrets := fake.NewSecretStore()
	secrets.Creds["h/smb"] = []netmount.Credential{{User: "alice", Password: "wrong"}}
	prompter := fake.NewPrompter(netmount.PromptResult{User: "alice", Password: "correct", Save: netmount.SavePermanent})

	m := netmount.NewMounter(daemon, gvfs, secrets, prompter, "alice")
	mp, err := m.Mount(context.Background(), "smb://h/s", mountclient.MountOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/media/alice/smbmounts/h-s", mp)
	assert.Equal(t, 1, prompter.CallCount)
	require.Len(t, secrets.Saved, 1)
	assert.Equal(t, "correct", secrets.Saved[0].Password)
}

func TestMounter_SecondPromptFailureIsAuthFailedNotRetried(t *testing.T) {
	daemon := fake.NewDaemonBackend()
	daemon.AvailableFS["cifs"] = true
	daemon.MountErr = []error{errors.New("bad"), errors.New("still bad")}
	gvfs := fake.NewGvfsBackend()
	secrets := fake.NewSecretStore()
	prompter := fake.NewPrompter(
		netmount.PromptResult{User: "alice", Password: "wrong1"},
		netmount.PromptResult{User: "alice", Password: "wrong2"},
	)

	m := netmount.NewMounter(daemon, gvfs, secrets, prompter, "alice")
	_, err := m.Mount(context.Background(), "smb://h/s", mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.UserErrorAuthenticationFailed, de.Code)
	assert.Equal(t, 2, prompter.CallCount)
}

func TestMounter_PromptCancelledReturnsUserCancelled(t *testing.T) {
	daemon := fake.NewDaemonBackend()
	daemon.AvailableFS["cifs"] = true
	gvfs := fake.NewGvfsBackend()
	secrets := fake.NewSecretStore()
	prompter := fake.NewPrompter(netmount.PromptResult{Cancelled: true})

	m := netmount.NewMounter(daemon, gvfs, secrets, prompter, "alice")
	_, err := m.Mount(context.Background(), "smb://h/s", mountclient.MountOptions{})
	require.Error(t, err)
	var de *deviceerr.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, deviceerr.UserErrorUserCancelled, de.Code)
}
