package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/linuxdeepin/dfm-toolkit/pkg/opticalengine"
)

// DeviceHandle is a scriptable fake of opticalengine.DeviceHandle.
type DeviceHandle struct {
	mu sync.Mutex

	AcquireErr  error
	Acquired    bool
	Properties  []string
	Speeds      []string
	RunStatus   int
	RunErr      error
	LastCommands [][]string
	Messages    []string // replayed in order on Watch, then channel closes
}

func NewDeviceHandle() *DeviceHandle {
	return &DeviceHandle{RunStatus: 1}
}

var _ opticalengine.DeviceHandle = (*DeviceHandle)(nil)

func (d *DeviceHandle) AcquireDevice(ctx context.Context, devicePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.AcquireErr != nil {
		return d.AcquireErr
	}
	if d.Acquired {
		return fmt.Errorf("fake: device already acquired")
	}
	d.Acquired = true
	return nil
}

func (d *DeviceHandle) ReleaseDevice(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Acquired = false
	return nil
}

func (d *DeviceHandle) ListProperties(ctx context.Context) ([]string, error) {
	return d.Properties, nil
}

func (d *DeviceHandle) ListSpeeds(ctx context.Context) ([]string, error) {
	return d.Speeds, nil
}

func (d *DeviceHandle) RunCommands(ctx context.Context, commands []string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.LastCommands = append(d.LastCommands, commands)
	if d.RunErr != nil {
		return 0, d.RunErr
	}
	return d.RunStatus, nil
}

func (d *DeviceHandle) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, len(d.Messages))
	for _, m := range d.Messages {
		ch <- m
	}
	close(ch)
	return ch, nil
}

// SCSIProbe is a scriptable fake of opticalengine.SCSIProbe.
type SCSIProbe struct {
	BlockSize int64
	Capacity  int64
	Err       error
}

var _ opticalengine.SCSIProbe = (*SCSIProbe)(nil)

func (s *SCSIProbe) ReadFormatCapacities(devicePath string) (int64, int64, error) {
	if s.Err != nil {
		return 0, 0, s.Err
	}
	return s.BlockSize, s.Capacity, nil
}
