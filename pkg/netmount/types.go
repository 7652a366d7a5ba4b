// Package netmount drives credential-bearing SMB/FTP/SFTP/WebDAV mounts,
// choosing between the privileged mount daemon and the session gvfs path
// depending on what the system bus currently advertises.
package netmount

import (
	"context"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// Credential is one secret-service entry matching a (host, scheme) pair.
type Credential struct {
	User     string
	Domain   string
	Password string
}

// SavePolicy controls where a successfully-used credential is persisted.
type SavePolicy int

const (
	SaveNever SavePolicy = iota
	SaveSession
	SavePermanent
)

// SecretStore abstracts the gnome-keyring-equivalent secret service: a
// schema-based lookup/store keyed by (server, protocol, user, domain).
type SecretStore interface {
	// Lookup returns every stored credential matching host and scheme, in
	// the store's own preference order.
	Lookup(ctx context.Context, host, scheme string) ([]Credential, error)

	// Save persists cred under (host, scheme) according to policy.
	// SaveNever is a no-op.
	Save(ctx context.Context, host, scheme string, cred Credential, policy SavePolicy) error
}

// PromptResult is what GetMountPassInfo returns to the daemon path, or
// what the gvfs ask_password/ask_question upcalls are translated from.
type PromptResult struct {
	User       string
	Domain     string
	Password   string // already base64-decoded
	Anonymous  bool
	Save       SavePolicy
	Cancelled  bool
}

// CredentialPrompter is the caller-supplied interactive surface: the
// daemon path's GetMountPassInfo/GetUserChoice, or the gvfs path's
// ask_password/ask_question, unified behind one interface.
type CredentialPrompter interface {
	// PromptPassword asks once for credentials. defaultUser/defaultDomain
	// pre-fill the prompt; anonymousAllowed tells the caller whether an
	// anonymous choice is offered.
	PromptPassword(ctx context.Context, message, defaultUser, defaultDomain string, anonymousAllowed bool) (PromptResult, error)

	// PromptChoice asks the user to pick among choices (gvfs ask_question).
	PromptChoice(ctx context.Context, message string, choices []string) (choiceIndex int, abort bool)
}

// DaemonBackend is the privileged mount daemon surface
// (org.deepin.Filemanager.MountControl).
type DaemonBackend interface {
	// Available reports whether the daemon is registered on the system
	// bus and lists fsType among SupportedFileSystems().
	Available(fsType string) bool

	Mount(ctx context.Context, address string, opts DaemonMountOptions) (mountPoint string, err error)
	Unmount(ctx context.Context, mountPoint string, fsType string) error
}

// DaemonMountOptions mirrors the daemon's Mount() opts map.
type DaemonMountOptions struct {
	User     string
	Domain   string
	Passwd   string // base64-encoded on the wire; callers pass plaintext here
	Timeout  int
	FsType   string
}

// GvfsBackend is the session gvolume-monitor mount surface used for every
// protocol scheme other than non-root SMB, and for SMB when the daemon is
// unavailable.
type GvfsBackend interface {
	Mount(ctx context.Context, id mountclient.DeviceId, op *mountclient.MountOperation, opts mountclient.MountOptions) (string, error)
}
