//go:build windows

package exitfmt

import "os/exec"

// signalInfo: Windows has no POSIX signal delivery, so a terminated
// child always surfaces as a plain exit code (spec §4.6 "Error mapping").
func signalInfo(exitErr *exec.ExitError) (bool, int) {
	return false, 0
}
