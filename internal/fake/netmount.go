package fake

import (
	"context"
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
	"github.com/linuxdeepin/dfm-toolkit/pkg/netmount"
)

// SecretStore is a scriptable fake of netmount.SecretStore.
type SecretStore struct {
	mu      sync.Mutex
	Creds   map[string][]netmount.Credential // keyed by host+"/"+scheme
	Saved   []netmount.Credential
	LookupErr error
}

func NewSecretStore() *SecretStore {
	return &SecretStore{Creds: map[string][]netmount.Credential{}}
}

var _ netmount.SecretStore = (*SecretStore)(nil)

func (s *SecretStore) Lookup(ctx context.Context, host, scheme string) ([]netmount.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	return s.Creds[host+"/"+scheme], nil
}

func (s *SecretStore) Save(ctx context.Context, host, scheme string, cred netmount.Credential, policy netmount.SavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saved = append(s.Saved, cred)
	return nil
}

// Prompter is a scriptable fake of netmount.CredentialPrompter.
type Prompter struct {
	mu       sync.Mutex
	Results  []netmount.PromptResult // consumed in order, one per call
	Err      error
	CallCount int
}

func NewPrompter(results ...netmount.PromptResult) *Prompter {
	return &Prompter{Results: results}
}

var _ netmount.CredentialPrompter = (*Prompter)(nil)

func (p *Prompter) PromptPassword(ctx context.Context, message, defaultUser, defaultDomain string, anonymousAllowed bool) (netmount.PromptResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return netmount.PromptResult{}, p.Err
	}
	if p.CallCount >= len(p.Results) {
		return netmount.PromptResult{Cancelled: true}, nil
	}
	r := p.Results[p.CallCount]
	p.CallCount++
	return r, nil
}

func (p *Prompter) PromptChoice(ctx context.Context, message string, choices []string) (int, bool) {
	return 0, false
}

// DaemonBackend is a scriptable fake of netmount.DaemonBackend.
type DaemonBackend struct {
	mu sync.Mutex

	AvailableFS map[string]bool
	MountErr    []error // consumed in order, nil entries succeed
	MountResult string
	callCount   int
	UnmountErr  error
}

func NewDaemonBackend() *DaemonBackend {
	return &DaemonBackend{AvailableFS: map[string]bool{}}
}

var _ netmount.DaemonBackend = (*DaemonBackend)(nil)

func (d *DaemonBackend) Available(fsType string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.AvailableFS[fsType]
}

func (d *DaemonBackend) Mount(ctx context.Context, address string, opts netmount.DaemonMountOptions) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.callCount < len(d.MountErr) {
		err = d.MountErr[d.callCount]
	}
	d.callCount++
	if err != nil {
		return "", err
	}
	return d.MountResult, nil
}

func (d *DaemonBackend) Unmount(ctx context.Context, mountPoint string, fsType string) error {
	return d.UnmountErr
}

// GvfsBackend is a scriptable fake of netmount.GvfsBackend.
type GvfsBackend struct {
	MountResult string
	MountErr    error
	Called      bool
}

func NewGvfsBackend() *GvfsBackend { return &GvfsBackend{} }

var _ netmount.GvfsBackend = (*GvfsBackend)(nil)

func (g *GvfsBackend) Mount(ctx context.Context, id mountclient.DeviceId, op *mountclient.MountOperation, opts mountclient.MountOptions) (string, error) {
	g.Called = true
	if g.MountErr != nil {
		return "", g.MountErr
	}
	return g.MountResult, nil
}
