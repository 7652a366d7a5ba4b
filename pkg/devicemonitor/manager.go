package devicemonitor

import (
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/mountclient"
)

// monitor is the subset of BlockMonitor/ProtocolMonitor that Manager
// drives uniformly.
type monitor interface {
	Subscribe(l Listener)
	Start()
	Stop()
	Registry() *Registry
}

// Manager aggregates the block and protocol monitors behind one
// start/stop lifecycle and one merged event stream.
type Manager struct {
	block    *BlockMonitor
	protocol *ProtocolMonitor
	bus      bus

	mu      sync.Mutex
	running bool
}

// NewManager wires listener fan-out from both monitors into one stream
// and returns a facade that starts/stops them together.
func NewManager(block *BlockMonitor, protocol *ProtocolMonitor) *Manager {
	m := &Manager{block: block, protocol: protocol}
	block.Subscribe(m.bus.emit)
	protocol.Subscribe(m.bus.emit)
	return m
}

// Subscribe registers a listener for the combined block+protocol stream.
func (m *Manager) Subscribe(l Listener) { m.bus.Subscribe(l) }

// Start is idempotent: calling it while already running is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.block.Start()
	m.protocol.Start()
}

// Stop is idempotent: calling it while already stopped is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.block.Stop()
	m.protocol.Stop()
}

// Devices returns every currently tracked device id across both kinds.
func (m *Manager) Devices() []mountclient.DeviceId {
	ids := m.block.Registry().Devices()
	return append(ids, m.protocol.Registry().Devices()...)
}

// CreateDevice resolves a device id to its live handle, checking the
// block registry first and falling back to the protocol registry.
func (m *Manager) CreateDevice(id mountclient.DeviceId) (mountclient.Device, bool) {
	if d, ok := m.block.Registry().CreateDevice(id); ok {
		return d, ok
	}
	return m.protocol.Registry().CreateDevice(id)
}
