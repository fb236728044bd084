package exitfmt

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribeCleanExit(t *testing.T) {
	require.Equal(t, "", Describe("/bin/true", nil))
}

func TestDescribeNonZeroExit(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 3").Run()
	require.Error(t, err)
	msg := Describe("sh", err)
	require.Equal(t, "Script sh exited with status 3", msg)
}

func TestDescribeSignalDeath(t *testing.T) {
	err := exec.Command("sh", "-c", "kill -TERM $$").Run()
	require.Error(t, err)
	msg := Describe("sh", err)
	require.Contains(t, msg, "killed by signal")
}

func TestSanitizeNameRejectsControlChars(t *testing.T) {
	require.Equal(t, "<invalid>", SanitizeName("bad\x01name"))
}

func TestSanitizeNameTruncatesLongNames(t *testing.T) {
	long := make([]byte, MaxNameLen+50)
	for i := range long {
		long[i] = 'a'
	}
	got := SanitizeName(string(long))
	require.Len(t, got, MaxNameLen)
}
