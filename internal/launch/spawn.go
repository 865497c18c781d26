package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/psantana5/waitgate/internal/logging"
	"github.com/psantana5/waitgate/internal/observe"
)

// forwardedSignals reach the child while the gate waits on it.
// Signals from a terminal the child owns reach it directly.
var forwardedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// Process is what Spawn observed about the child.
type Process struct {
	PID      int
	ExitCode int
	Timing   *observe.Timing
}

// Forwarder queues the signals in forwardedSignals for a child that may
// not exist yet. Whatever it catches before Spawn starts the child is
// delivered right after.
type Forwarder struct {
	ch chan os.Signal
}

// NewForwarder subscribes to forwardedSignals. From here on those signals
// no longer have their default action; Spawn stops the forwarder.
func NewForwarder() *Forwarder {
	f := &Forwarder{ch: make(chan os.Signal, 8)}
	signal.Notify(f.ch, forwardedSignals...)
	return f
}

// Stop unsubscribes. Queued signals are dropped.
func (f *Forwarder) Stop() {
	signal.Stop(f.ch)
}

// relay sends every queued signal to proc until done is closed.
func (f *Forwarder) relay(proc *os.Process, done <-chan struct{}, logger *logging.Logger) {
	for {
		select {
		case sig := <-f.ch:
			logger.Info("Forwarding signal to application", logging.Fields{"signal": sig.String(), "pid": proc.Pid})
			if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Warn("Signal forwarding failed", logging.Fields{"signal": sig.String(), "error": err.Error()})
			}
		case <-done:
			return
		}
	}
}

// Spawn runs the command as a child and blocks until it exits.
//
// The child gets our stdio. When stdin is the terminal we are in the
// foreground of, the child gets its own process group and takes over the
// terminal, so it can read input and receives Ctrl-C directly; the gate
// takes the terminal back once the child is gone. Otherwise the child
// stays in our process group.
//
// Signals are relayed through fwd, which Spawn stops before returning.
// A nil fwd subscribes one here, before the child starts. The gate itself
// never exits before the child does.
//
// A child that exits non-zero is not an error: the code is in
// Process.ExitCode. A child killed by a signal reports 128+signal.
func Spawn(spec Spec, fwd *Forwarder, logger *logging.Logger) (*Process, error) {
	if fwd == nil {
		fwd = NewForwarder()
	}
	defer fwd.Stop()

	if err := spec.validate(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if fd, ok := foregroundTTY(os.Stdin); ok {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Setpgid:    true,
			Foreground: true,
			Ctty:       fd,
		}
		// Also covers a child that took the terminal and then failed to exec.
		defer reclaimTTY(fd, logger)
	}

	timing := observe.NewTiming()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrCommandNotFound, spec.Command[0], err)
		}
		return nil, fmt.Errorf("failed to start %s: %w", spec.Command[0], err)
	}

	proc := &Process{PID: cmd.Process.Pid, Timing: timing}
	logger.Info("Application started", logging.Fields{"pid": proc.PID})

	done := make(chan struct{})
	go fwd.relay(cmd.Process, done, logger)

	err := cmd.Wait()
	close(done)
	timing.Complete()

	proc.ExitCode = exitCode(cmd, err)
	if err != nil && proc.ExitCode < 0 {
		return proc, fmt.Errorf("failed waiting for %s: %w", spec.Command[0], err)
	}

	return proc, nil
}

// foregroundTTY reports whether f is our controlling terminal with our
// process group in the foreground, and returns its descriptor.
func foregroundTTY(f *os.File) (int, bool) {
	if f == nil {
		return 0, false
	}
	fd := int(f.Fd())
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || pgrp != unix.Getpgrp() {
		return 0, false
	}
	return fd, true
}

// reclaimTTY puts our process group back in the foreground. We are a
// background group at this point, so SIGTTOU must be ignored meanwhile.
func reclaimTTY(fd int, logger *logging.Logger) {
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, unix.Getpgrp()); err != nil {
		logger.Warn("Failed to restore terminal foreground", logging.Fields{"error": err.Error()})
	}
}

// exitCode extracts the child's status; -1 if it cannot be determined.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	state := cmd.ProcessState
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if waitErr == nil {
		return 0
	}
	return -1
}
