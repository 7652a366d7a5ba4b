package mountclient

import (
	"context"
	"time"

	"github.com/linuxdeepin/dfm-toolkit/pkg/deviceerr"
)

// DefaultSyncDeadline is the default async-to-sync deadline.
const DefaultSyncDeadline = 25 * time.Second

// syncFromAsync implements the async-to-sync adapter: it starts
// the async operation, waits on a deadline, and on deadline expiry (or
// ctx cancellation) cancels opts.Cancellable and returns
// UserErrorTimedOut. When opts carries no Cancellable a fresh one is
// created here; start receives only the completion callback, so the
// running operation does not see it. This replaces the
// source's nested-event-loop (`ASyncToSyncHelper`) with a channel-based
// wait: cancel on deadline, propagate success/failure.
func syncFromAsync(ctx context.Context, opts MountOptions, start func(done func(string, error))) (string, error) {
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultSyncDeadline
	}

	cancellable := opts.Cancellable
	if cancellable == nil {
		cancellable = NewCancellable()
		opts.Cancellable = cancellable
	}

	type result struct {
		mountPoint string
		err        error
	}
	resultCh := make(chan result, 1)

	start(func(mountPoint string, err error) {
		select {
		case resultCh <- result{mountPoint, err}:
		default:
		}
	})

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case r := <-resultCh:
		return r.mountPoint, r.err
	case <-timer.C:
		cancellable.Cancel()
		return "", deviceerr.New(deviceerr.UserErrorTimedOut, "")
	case <-ctx.Done():
		cancellable.Cancel()
		return "", deviceerr.New(deviceerr.UserErrorTimedOut, ctx.Err().Error())
	}
}
