package opticalengine

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// Inspect acquires devicePath, reads its properties and speeds, and
// releases it, returning an immutable DiscInfo snapshot. When the
// media is DVD-RW and reports used == total (apparently full), the
// true capacity is cross-checked via the SCSI probe and overwrites
// both fields (§4.4.2's fully-written edge case).
func (e *Engine) Inspect(ctx context.Context, devicePath string) (DiscInfo, error) {
	if err := e.device.AcquireDevice(ctx, devicePath); err != nil {
		return DiscInfo{}, fmt.Errorf("opticalengine: acquire %s: %w", devicePath, err)
	}
	defer func() {
		if err := e.device.ReleaseDevice(ctx); err != nil {
			klog.Warningf("opticalengine: release %s: %v", devicePath, err)
		}
	}()

	props, err := e.device.ListProperties(ctx)
	if err != nil {
		return DiscInfo{}, fmt.Errorf("opticalengine: list properties: %w", err)
	}
	speeds, err := e.device.ListSpeeds(ctx)
	if err != nil {
		return DiscInfo{}, fmt.Errorf("opticalengine: list speeds: %w", err)
	}

	info := sieve(devicePath, props, speeds)

	if info.Media == DVDRW && info.UsedBytes == info.TotalBytes && e.scsi != nil {
		blockSize, capacity, err := e.scsi.ReadFormatCapacities(devicePath)
		if err != nil {
			klog.Warningf("opticalengine: DVD-RW capacity probe failed for %s: %v", devicePath, err)
		} else {
			trueTotal := blockSize * capacity
			info.TotalBytes = trueTotal
			info.UsedBytes = trueTotal
			klog.V(3).Infof("opticalengine: %s DVD-RW true capacity probed: %d bytes", devicePath, trueTotal)
		}
	}

	return info, nil
}
