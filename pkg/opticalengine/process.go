package opticalengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"k8s.io/klog/v2"
)

// cdrskinPath is the dialog-capable burn program this DeviceHandle
// drives. growisofs/wodim have no equivalent "-waiti" stdin dialog
// mode; cdrskin (and xorriso in cdrskin-emulation mode) does, which is
// why the engine's command/progress vocabulary ("speed N", "volid X",
// "commit", "Media current:", "Writing:  fifo") matches cdrskin's own
// dialog protocol rather than being invented here.
const cdrskinPath = "cdrskin"

// ProcessDeviceHandle drives a real optical drive by keeping a single
// "cdrskin -waiti" subprocess alive across AcquireDevice/ReleaseDevice,
// writing commands to its stdin and reading its stdout line by line.
type ProcessDeviceHandle struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	cancel context.CancelFunc
}

var _ DeviceHandle = (*ProcessDeviceHandle)(nil)

// NewProcessDeviceHandle returns an idle handle; AcquireDevice spawns
// the subprocess.
func NewProcessDeviceHandle() *ProcessDeviceHandle {
	return &ProcessDeviceHandle{}
}

func (h *ProcessDeviceHandle) AcquireDevice(ctx context.Context, devicePath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd != nil {
		return fmt.Errorf("opticalengine: device already acquired by this handle")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, cdrskinPath, "dev="+devicePath, "-waiti")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("opticalengine: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("opticalengine: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("opticalengine: start %s: %w", cdrskinPath, err)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	h.cmd = cmd
	h.stdin = stdin
	h.lines = lines
	h.cancel = cancel
	return nil
}

func (h *ProcessDeviceHandle) ReleaseDevice(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil {
		return nil
	}
	fmt.Fprintln(h.stdin, "end")
	h.stdin.Close()
	err := h.cmd.Wait()
	h.cancel()
	h.cmd, h.stdin, h.lines, h.cancel = nil, nil, nil, nil
	if err != nil {
		klog.V(3).Infof("opticalengine: %s exited: %v", cdrskinPath, err)
	}
	return nil
}

func (h *ProcessDeviceHandle) sendAndCollect(ctx context.Context, command string, stopAt func(line string) bool) ([]string, error) {
	h.mu.Lock()
	stdin, lines := h.stdin, h.lines
	h.mu.Unlock()
	if stdin == nil {
		return nil, fmt.Errorf("opticalengine: device not acquired")
	}
	if _, err := fmt.Fprintln(stdin, command); err != nil {
		return nil, fmt.Errorf("opticalengine: write command %q: %w", command, err)
	}

	var out []string
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return out, io.ErrUnexpectedEOF
			}
			out = append(out, line)
			if stopAt(line) {
				return out, nil
			}
		}
	}
}

func (h *ProcessDeviceHandle) ListProperties(ctx context.Context) ([]string, error) {
	return h.sendAndCollect(ctx, "list properties", func(line string) bool { return line == "" })
}

func (h *ProcessDeviceHandle) ListSpeeds(ctx context.Context) ([]string, error) {
	return h.sendAndCollect(ctx, "list speeds", func(line string) bool { return line == "" })
}

// RunCommands writes each command in sequence and returns the exit
// status embedded in cdrskin's terminal "Problem status:" line (a
// positive value is success, per the dialog protocol).
func (h *ProcessDeviceHandle) RunCommands(ctx context.Context, commands []string) (int, error) {
	h.mu.Lock()
	stdin := h.stdin
	h.mu.Unlock()
	if stdin == nil {
		return 0, fmt.Errorf("opticalengine: device not acquired")
	}
	for _, c := range commands {
		if _, err := fmt.Fprintln(stdin, c); err != nil {
			return 0, fmt.Errorf("opticalengine: write command %q: %w", c, err)
		}
	}
	lines, err := h.sendAndCollect(ctx, "status", func(line string) bool {
		return len(line) > len("Problem status:") && line[:len("Problem status:")] == "Problem status:"
	})
	if err != nil {
		return 0, err
	}
	status := 0
	for _, line := range lines {
		if n, scanErr := fmt.Sscanf(line, "Problem status: %d", &status); scanErr == nil && n == 1 {
			break
		}
	}
	return status, nil
}

func (h *ProcessDeviceHandle) Watch(ctx context.Context) (<-chan string, error) {
	h.mu.Lock()
	lines := h.lines
	h.mu.Unlock()
	if lines == nil {
		return nil, fmt.Errorf("opticalengine: device not acquired")
	}
	return lines, nil
}
