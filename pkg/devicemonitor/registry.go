package devicemonitor

import (
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// State is a monitor's own lifecycle state.
type State int

const (
	Idle State = iota
	Monitoring
)

// Registry is the live, deduplicated set of known devices. Mutation
// happens only on the owning monitor's callback goroutine; reads are
// safe from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	devices map[mountclient.DeviceId]mountclient.Device
}

func newRegistry() *Registry {
	return &Registry{devices: map[mountclient.DeviceId]mountclient.Device{}}
}

func (r *Registry) put(d mountclient.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[d.ID()] = d
}

func (r *Registry) remove(id mountclient.DeviceId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
}

func (r *Registry) get(id mountclient.DeviceId) (mountclient.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// Devices returns every currently tracked device id.
func (r *Registry) Devices() []mountclient.DeviceId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]mountclient.DeviceId, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	return ids
}

// CreateDevice returns the live Device handle for id, if tracked.
func (r *Registry) CreateDevice(id mountclient.DeviceId) (mountclient.Device, bool) {
	return r.get(id)
}

func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
