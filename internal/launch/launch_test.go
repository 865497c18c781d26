package launch

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/waitgate/internal/logging"
)

func TestSpawn_PropagatesExitCode(t *testing.T) {
	proc, err := Spawn(Spec{Command: []string{"sh", "-c", "exit 3"}}, nil, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, 3, proc.ExitCode)
	assert.NotZero(t, proc.PID)
	assert.False(t, proc.Timing.CompletedAt.IsZero())
}

func TestSpawn_Success(t *testing.T) {
	proc, err := Spawn(Spec{Command: []string{"true"}}, nil, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, proc.ExitCode)
}

func TestSpawn_KilledBySignal(t *testing.T) {
	proc, err := Spawn(Spec{Command: []string{"sh", "-c", "kill -TERM $$"}}, nil, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 128+15, proc.ExitCode)
}

func TestSpawn_WorkDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{
		Command: []string{"sh", "-c", `[ "$(pwd -P)" = "$WANT" ] && [ "$GATE_TEST" = "yes" ]`},
		Dir:     dir,
	}
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	spec.Env = append(os.Environ(), "WANT="+resolved, "GATE_TEST=yes")

	proc, err := Spawn(spec, nil, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, proc.ExitCode)
}

func TestSpawn_ForwardsSignalToChild(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	spec := Spec{
		Command: []string{"sh", "-c", `trap "exit 7" TERM; touch "$READY"; sleep 5 & wait`},
		Env:     append(os.Environ(), "READY="+ready),
	}

	type spawnResult struct {
		proc *Process
		err  error
	}
	done := make(chan spawnResult, 1)
	go func() {
		proc, err := Spawn(spec, nil, logging.Nop())
		done <- spawnResult{proc, err}
	}()

	// The trap is installed once the file exists.
	require.Eventually(t, func() bool {
		_, err := os.Stat(ready)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, 7, res.proc.ExitCode)
	case <-time.After(10 * time.Second):
		t.Fatal("child did not exit after SIGTERM")
	}
}

func TestSpawn_DeliversSignalQueuedBeforeStart(t *testing.T) {
	fwd := NewForwarder()
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	proc, err := Spawn(Spec{Command: []string{"sleep", "5"}}, fwd, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, 128+15, proc.ExitCode)
	assert.Less(t, proc.Timing.Duration(), 5*time.Second)
}

func TestSpawn_StopsForwarderOnInvalidSpec(t *testing.T) {
	fwd := NewForwarder()
	_, err := Spawn(Spec{}, fwd, logging.Nop())
	require.Error(t, err)

	// Keep SIGUSR2 from killing the test binary, then check the stopped
	// forwarder no longer receives it.
	caught := make(chan os.Signal, 1)
	signal.Notify(caught, syscall.SIGUSR2)
	defer signal.Stop(caught)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))
	select {
	case <-caught:
	case <-time.After(5 * time.Second):
		t.Fatal("SIGUSR2 not delivered")
	}

	select {
	case sig := <-fwd.ch:
		t.Fatalf("stopped forwarder received %v", sig)
	default:
	}
}

func TestForegroundTTY_NotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, ok := foregroundTTY(r)
	assert.False(t, ok)

	_, ok = foregroundTTY(nil)
	assert.False(t, ok)
}

func TestSpawn_CommandNotFound(t *testing.T) {
	_, err := Spawn(Spec{Command: []string{"definitely-not-a-real-binary-xyz"}}, nil, logging.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestSpawn_EmptyCommand(t *testing.T) {
	_, err := Spawn(Spec{}, nil, logging.Nop())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCommandNotFound)
}

func TestResolve(t *testing.T) {
	path, err := Resolve("sh")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	_, err = Resolve("definitely-not-a-real-binary-xyz")
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestExec_CommandNotFound(t *testing.T) {
	err := Exec(Spec{Command: []string{"definitely-not-a-real-binary-xyz"}})
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

// TestExecHelperProcess is the body of TestExec_ReplacesProcess. It only
// runs in the subprocess that test starts.
func TestExecHelperProcess(t *testing.T) {
	if os.Getenv("WAITGATE_EXEC_HELPER") != "1" {
		t.Skip("helper process")
	}
	err := Exec(Spec{
		Command: []string{"sh", "-c", `echo $$; [ "$(pwd -P)" = "$WANT" ] && exit 9; exit 1`},
		Dir:     os.Getenv("WANT"),
	})
	fmt.Fprintln(os.Stderr, err)
	os.Exit(100)
}

func TestExec_ReplacesProcess(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	var stdout bytes.Buffer
	cmd := exec.Command(os.Args[0], "-test.run=^TestExecHelperProcess$")
	cmd.Env = append(os.Environ(), "WAITGATE_EXEC_HELPER=1", "WANT="+dir)
	cmd.Stdout = &stdout

	err = cmd.Run()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected exit status, got %v", err)
	assert.Equal(t, 9, exitErr.ExitCode())

	// Same PID: the command replaced the helper instead of running beside it.
	assert.Equal(t, strconv.Itoa(cmd.Process.Pid), strings.TrimSpace(stdout.String()))
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 42}
	assert.Equal(t, "command exited with status 42", err.Error())
}
