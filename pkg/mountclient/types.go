// Package mountclient is the thin typed wrapper over the system's
// block/protocol mount services. It hides the
// raw D-Bus backend behind per-device handles exposing only the
// operations the monitor and the rest of the toolkit need.
package mountclient

import (
	"context"
	"sync"
	"time"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
	"github.com/linuxdeepin/dfm-toolkit/pkg/property"
)

// DeviceId is an opaque device identity: a backend object path for block
// devices, or a URI for protocol devices.
type DeviceId string

// Kind tags which variant of Device a handle is.
type Kind int

const (
	KindBlock Kind = iota
	KindProtocol
	KindNet
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindProtocol:
		return "protocol"
	case KindNet:
		return "net"
	default:
		return "unknown"
	}
}

// Capability is one bit of the capability set every
// Device to carry.
type Capability int

const (
	CapMountable Capability = iota
	CapUnmountable
	CapEjectable
	CapPowerOffable
	CapRenamable
	CapLockable
	CapUnlockable
	CapRescanable
)

// CapabilitySet is a small closed set of Capability flags.
type CapabilitySet map[Capability]bool

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = true
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// MountState is NotMounted or Mounted{mount_point}. A zero value is
// NotMounted.
type MountState struct {
	mounted    bool
	mountPoint string
}

func NotMounted() MountState { return MountState{} }

func Mounted(mountPoint string) MountState {
	return MountState{mounted: true, mountPoint: mountPoint}
}

func (m MountState) IsMounted() bool    { return m.mounted }
func (m MountState) MountPoint() string { return m.mountPoint }

// MountOptions is the closed set of per-call mount option overrides.
type MountOptions struct {
	// Cancellable, if non-nil, is cancelled by the async-to-sync adapter
	// on deadline expiry or ctx cancellation. DBusBackend and
	// DBusProtocolBackend do not read it, so cancelling it does not
	// interrupt an in-flight D-Bus call.
	Cancellable *Cancellable

	// Operation is the interactive-credential handle used for password
	// prompts on protocol devices.
	Operation *MountOperation

	// Force, if true, makes unmount use force semantics.
	Force bool

	// Deadline overrides the default 25s async-to-sync deadline.
	Deadline time.Duration
}

// Cancellable is a cooperative cancellation handle carried in
// MountOptions. Cancel closes Done() and makes IsCancelled report true;
// it affects only code that checks one of them.
type Cancellable struct {
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	canceled bool
}

func NewCancellable() *Cancellable {
	return &Cancellable{done: make(chan struct{})}
}

func (c *Cancellable) Cancel() {
	c.once.Do(func() {
		c.mu.Lock()
		c.canceled = true
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Cancellable) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

func (c *Cancellable) Done() <-chan struct{} { return c.done }

// MountOperation routes interactive upcalls (ask-password, ask-question)
// for protocol mounts to caller-supplied callbacks.
type MountOperation struct {
	AskPassword func(message, defaultUser, defaultDomain string, anonymousAllowed bool) (user, domain, password string, anonymous, abort bool)
	AskQuestion func(message string, choices []string) (choiceIndex int, abort bool)
}

// PropertyBag is a property -> value map, as returned by Device.Get and
// delivered by propertyChanged. Values are the backend's native Go
// representation (string, uint64, bool, []string, ...).
type PropertyBag map[property.Property]interface{}

// VolumeLinkage records whether a protocol device is volume-only,
// mount-only (orphan), or both.
type VolumeLinkage struct {
	HasVolume bool
	HasMount  bool
	VolumeID  string // backend volume object identity, "" if HasVolume is false
}

func (v VolumeLinkage) IsOrphanMount() bool { return v.HasMount && !v.HasVolume }
func (v VolumeLinkage) IsVolumeOnly() bool  { return v.HasVolume && !v.HasMount }
func (v VolumeLinkage) IsBoth() bool        { return v.HasVolume && v.HasMount }

// Device is the polymorphic handle shared by block and protocol
// devices: a BlockDevice
// or a ProtocolDevice, selected by Kind().
type Device interface {
	ID() DeviceId
	Kind() Kind
	Capabilities() CapabilitySet
	MountState() MountState
	LastError() *deviceerr.Error

	// Get performs an on-demand property read: it acquires the backend
	// handle fresh, so consecutive calls may observe different values if
	// the backend state changed. Returns (nil, false) if the property's
	// band sub-interface is absent on this device.
	Get(p property.Property) (interface{}, bool)

	Mount(ctx context.Context, opts MountOptions) (string, error)
	MountAsync(ctx context.Context, opts MountOptions, done func(mountPoint string, err error))
	Unmount(ctx context.Context, opts MountOptions) error
	UnmountAsync(ctx context.Context, opts MountOptions, done func(err error))
}

// BlockCapableDevice is implemented only by block devices and exposes the
// block-only operations.
type BlockCapableDevice interface {
	Device
	Eject(ctx context.Context, opts MountOptions) error
	PowerOff(ctx context.Context, opts MountOptions) error
	Lock(ctx context.Context, opts MountOptions) error
	Unlock(ctx context.Context, passphrase string, opts MountOptions) (cleartextDevice DeviceId, err error)
	Rescan(ctx context.Context, opts MountOptions) error
	Rename(ctx context.Context, newLabel string, opts MountOptions) error
}
