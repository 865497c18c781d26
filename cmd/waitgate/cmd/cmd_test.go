package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/waitgate/internal/config"
	"github.com/psantana5/waitgate/internal/launch"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *launch.ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}

func statusServer(t *testing.T, code int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "waitgate dev")
}

func TestConfigExample(t *testing.T) {
	out, err := execute(t, "config", "example")
	require.NoError(t, err)
	assert.Equal(t, config.ExampleConfig, out)
}

func TestConfigShow_Defaults(t *testing.T) {
	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "url: http://db:81")
	assert.Contains(t, out, "max_attempts: 30")
	assert.Contains(t, out, "interval: 2s")
	assert.Contains(t, out, "timeout: 5s")
}

func TestConfigShow_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("WAITGATE_MAX_ATTEMPTS", "9")
	t.Setenv("WAITGATE_INTERVAL", "3s")

	out, err := execute(t, "config", "show",
		"--max-attempts", "7",
		"--target", "tcp://127.0.0.1:6379",
		"--target", "postgres://app:secret@db:5432/app",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "max_attempts: 7")
	assert.Contains(t, out, "interval: 3s")
	assert.Contains(t, out, "address: 127.0.0.1:6379")
	assert.Contains(t, out, "app:xxxxx@db:5432")
	assert.NotContains(t, out, "secret")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	_, err := execute(t, "config", "show", "--max-attempts=0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestProbe_JSON(t *testing.T) {
	up := statusServer(t, http.StatusOK)
	down := statusServer(t, http.StatusServiceUnavailable)

	out, err := execute(t, "probe", "--json", "--target", up)
	require.NoError(t, err)

	var res probeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Ready)
	require.Len(t, res.Results, 1)
	assert.Equal(t, http.StatusOK, res.Results[0].StatusCode)

	out, err = execute(t, "probe", "--json", "--target", up, "--target", down)
	assert.Equal(t, 1, exitCode(t, err))

	res = probeOutput{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Ready)
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].OK)
	assert.False(t, res.Results[1].OK)
}

func TestProbe_Table(t *testing.T) {
	up := statusServer(t, http.StatusOK)

	out, err := execute(t, "probe", "--target", up)
	require.NoError(t, err)
	assert.Contains(t, out, "127.0.0.1")
	assert.Contains(t, out, "OK")
}

func TestRun_PropagatesChildExitCode(t *testing.T) {
	up := statusServer(t, http.StatusOK)

	_, err := execute(t, "run", "--target", up, "--interval", "10ms", "--", "sh", "-c", "exit 4")
	assert.Equal(t, 4, exitCode(t, err))
}

func TestRun_RootBehavesLikeRun(t *testing.T) {
	up := statusServer(t, http.StatusOK)

	_, err := execute(t, "--target", up, "--", "true")
	assert.NoError(t, err)
}

func TestRun_ExhaustionExitsOneWithoutLaunching(t *testing.T) {
	down := statusServer(t, http.StatusServiceUnavailable)
	marker := filepath.Join(t.TempDir(), "launched")

	_, err := execute(t, "run",
		"--target", down,
		"--max-attempts", "3",
		"--interval", "1ms",
		"--", "touch", marker,
	)
	assert.Equal(t, 1, exitCode(t, err))

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "command must not run when the target never becomes ready")
}

func TestRun_CommandNotFound(t *testing.T) {
	up := statusServer(t, http.StatusOK)

	_, err := execute(t, "run", "--target", up, "--", "definitely-not-a-real-binary-xyz")
	assert.Equal(t, launch.ExitCodeNotFound, exitCode(t, err))
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	up := statusServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "waitgate.prom")

	_, err := execute(t, "run", "--target", up, "--metrics-textfile", path, "--", "true")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "waitgate_ready 1")
	assert.Contains(t, string(data), "waitgate_attempts 1")
	assert.Contains(t, string(data), "waitgate_launch_exit_code 0")
}

func TestRun_ExplicitConfigFile(t *testing.T) {
	up := statusServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "waitgate.yaml")
	content := "targets:\n  - url: " + up + "\ncommand: [\"sh\", \"-c\", \"exit 5\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := execute(t, "run", "--config", path)
	assert.Equal(t, 5, exitCode(t, err))
}

func TestRun_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var exitErr *launch.ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestConfigShow_TargetFlagOverridesTargetsEnv(t *testing.T) {
	t.Setenv("WAITGATE_TARGETS", "http://api:8080,tcp://cache:6379")

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "url: http://api:8080")
	assert.Contains(t, out, "address: cache:6379")

	out, err = execute(t, "config", "show", "--target", "tcp://queue:5672")
	require.NoError(t, err)
	assert.Contains(t, out, "address: queue:5672")
	assert.NotContains(t, out, "api:8080")
}
