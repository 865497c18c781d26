package launch

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Exec replaces the current process image with the command.
// On success it does not return; the command inherits our PID, stdio and
// signal disposition, and its exit code becomes ours.
func Exec(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	path, err := Resolve(spec.Command[0])
	if err != nil {
		return err
	}

	if spec.Dir != "" {
		if err := os.Chdir(spec.Dir); err != nil {
			return fmt.Errorf("failed to change directory to %s: %w", spec.Dir, err)
		}
	}

	env := spec.Env
	if env == nil {
		env = os.Environ()
	}

	if err := unix.Exec(path, spec.Command, env); err != nil {
		return fmt.Errorf("failed to exec %s: %w", path, err)
	}
	return nil
}
