package launch

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrCommandNotFound means the launch command could not be resolved or started.
var ErrCommandNotFound = errors.New("command not found")

// ExitCodeNotFound is the shell convention for an unresolvable command.
const ExitCodeNotFound = 127

// Spec describes the downstream command.
type Spec struct {
	Command []string // argv; Command[0] is resolved through PATH
	Dir     string   // working directory; empty inherits ours
	Env     []string // nil inherits ours
}

func (s Spec) validate() error {
	if len(s.Command) == 0 || s.Command[0] == "" {
		return errors.New("launch: empty command")
	}
	return nil
}

// ExitError carries the launched command's exit status back to main,
// which turns it into the gate's own exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// Resolve looks name up in PATH the way a shell would.
func Resolve(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCommandNotFound, name, err)
	}
	return path, nil
}
