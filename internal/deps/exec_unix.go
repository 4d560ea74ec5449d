//go:build unix

package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkExecutable confirms path is a regular file the current user may run.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", path)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%q is not executable: %w", path, err)
	}
	return nil
}
