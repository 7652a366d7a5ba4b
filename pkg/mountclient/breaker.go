package mountclient

import (
	"time"

	"github.com/sony/gobreaker"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
)

const (
	breakerConsecutiveFailures uint32        = 3
	breakerOpenTimeout         time.Duration = 30 * time.Second
	breakerClearInterval       time.Duration = 1 * time.Minute
)

// newDeviceBreaker builds the circuit breaker guarding repeated
// mount/unmount attempts against a single device whose backend keeps
// returning failures. It uses the two-step API rather than Execute
// since the backend's operations complete on an async callback, not
// by returning.
func newDeviceBreaker(id DeviceId) *gobreaker.TwoStepCircuitBreaker {
	return gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        string(id),
		MaxRequests: 1,
		Interval:    breakerClearInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			klog.Infof("mountclient: circuit breaker for %s: %s -> %s", name, from, to)
		},
	})
}

// breakerBusyError is returned when Allow() refuses a call because the
// breaker is open or the half-open trial slot is already in use.
func breakerBusyError() *deviceerr.Error {
	return deviceerr.New(deviceerr.DeviceBusy, "circuit breaker open: too many recent failures")
}
