package netmount

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// currentUserMediaPattern matches the gvfs smbmounts staging directory
// for a given user, used by already-mounted detection.
const currentUserMediaPattern = `^/(?:run/)?media/%s/smbmounts/`

// Mounter implements mountclient.SMBHandoff: non-root smb:// URIs are
// routed here by ProtocolDevice.Mount so a credential prompt can run
// before the physical mount happens.
type Mounter struct {
	daemon      DaemonBackend
	gvfs        GvfsBackend
	secrets     SecretStore
	prompter    CredentialPrompter
	currentUser string
}

// NewMounter builds a Mounter. currentUser is the session user name used
// to scope the already-mounted media-directory check.
func NewMounter(daemon DaemonBackend, gvfs GvfsBackend, secrets SecretStore, prompter CredentialPrompter, currentUser string) *Mounter {
	return &Mounter{daemon: daemon, gvfs: gvfs, secrets: secrets, prompter: prompter, currentUser: currentUser}
}

var _ mountclient.SMBHandoff = (*Mounter)(nil)

// hostAndScheme splits an smb://host/share-style address into the bits
// the secret-service schema keys on.
func hostAndScheme(address string) (host, scheme string) {
	s := address
	idx := strings.Index(s, "://")
	if idx < 0 {
		return s, ""
	}
	scheme = s[:idx]
	rest := s[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	if at := strings.Index(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return rest, scheme
}

// AlreadyMounted reports whether address already has a live mount,
// returning its mount point. It strips the "smb:" scheme prefix from the
// address before matching /proc/self/mounts sources, and requires the
// target to sit under this user's gvfs smbmounts staging directory.
func (m *Mounter) AlreadyMounted(address string) (mountPoint string, ok bool) {
	entries, err := mountclient.ReadMounts()
	if err != nil {
		klog.V(3).Infof("netmount: failed reading mounts for already-mounted check: %v", err)
		return "", false
	}
	stripped := strings.TrimPrefix(address, "smb:")
	pattern := regexp.MustCompile(fmt.Sprintf(currentUserMediaPattern, regexp.QuoteMeta(m.currentUser)))
	for _, e := range entries {
		if e.FSType != "cifs" {
			continue
		}
		if e.Source == stripped && pattern.MatchString(e.Mountpoint) {
			return e.Mountpoint, true
		}
	}
	return "", false
}

// Mount is the mountclient.SMBHandoff entry point for non-root smb://
// addresses: selects the daemon or gvfs physical path and runs the
// credential-lookup protocol on the daemon path.
func (m *Mounter) Mount(ctx context.Context, address string, opts mountclient.MountOptions) (string, error) {
	if mp, ok := m.AlreadyMounted(address); ok {
		return "", deviceerr.New(deviceerr.IOAlreadyMounted, mp)
	}

	host, scheme := hostAndScheme(address)
	if m.daemon != nil && m.daemon.Available("cifs") {
		return m.mountViaDaemon(ctx, address, host, scheme)
	}
	return m.gvfs.Mount(ctx, mountclient.DeviceId(address), opts.Operation, opts)
}

// mountViaDaemon implements the credential-lookup protocol: try stored
// credentials in order, then prompt on total failure (promptAndMount
// prompts at most twice).
func (m *Mounter) mountViaDaemon(ctx context.Context, address, host, scheme string) (string, error) {
	creds, err := m.secrets.Lookup(ctx, host, scheme)
	if err != nil {
		klog.V(3).Infof("netmount: secret lookup failed for %s: %v", host, err)
	}

	for _, cred := range creds {
		mp, err := m.daemon.Mount(ctx, address, DaemonMountOptions{
			User: cred.User, Domain: cred.Domain, Passwd: cred.Password, FsType: "cifs",
		})
		if err == nil {
			return mp, nil
		}
		klog.V(3).Infof("netmount: stored credential for %s rejected: %v", host, err)
	}

	return m.promptAndMount(ctx, address, host, scheme)
}

// promptAndMount implements the documented "retry with a fresh prompt
// exactly once" policy: a credential failure after the first prompt
// leads to one fresh prompt, and a failure after that second prompt is
// reported as an authentication failure rather than prompted again.
func (m *Mounter) promptAndMount(ctx context.Context, address, host, scheme string) (string, error) {
	var mountPoint string
	attempt := 0
	op := func() error {
		attempt++
		result, err := m.prompter.PromptPassword(ctx, "Enter username and password for "+host, "", "", true)
		if err != nil {
			return backoff.Permanent(err)
		}
		if result.Cancelled {
			return backoff.Permanent(deviceerr.New(deviceerr.UserErrorUserCancelled, ""))
		}

		mp, mountErr := m.daemon.Mount(ctx, address, DaemonMountOptions{
			User: result.User, Domain: result.Domain, Passwd: result.Password, FsType: "cifs",
		})
		if mountErr == nil {
			if result.Save != SaveNever {
				if saveErr := m.secrets.Save(ctx, host, scheme, Credential{
					User: result.User, Domain: result.Domain, Password: result.Password,
				}, result.Save); saveErr != nil {
					klog.Warningf("netmount: failed to save credential for %s: %v", host, saveErr)
				}
			}
			mountPoint = mp
			return nil
		}
		if attempt >= 2 {
			return backoff.Permanent(deviceerr.New(deviceerr.UserErrorAuthenticationFailed, mountErr.Error()))
		}
		return mountErr
	}

	retryPolicy := backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 1)
	if err := backoff.Retry(op, retryPolicy); err != nil {
		return "", err
	}
	return mountPoint, nil
}

// Unmount unmounts a daemon-path SMB mount, translating the daemon's
// documented errno −8 to UserErrorAuthenticationFailed.
func (m *Mounter) Unmount(ctx context.Context, mountPoint string) error {
	err := m.daemon.Unmount(ctx, mountPoint, "cifs")
	if err == nil {
		return nil
	}
	if de, ok := err.(*deviceerr.Error); ok {
		return de
	}
	return deviceerr.New(deviceerr.UnhandledError, err.Error())
}
