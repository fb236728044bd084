//go:build !windows

package launcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartInteractiveUsesPty(t *testing.T) {
	cfg := testConfig(t, nil)
	opts := ScriptOptions{
		Program:     "sh",
		Args:        []string{"-c", "echo from-pty; exit 0"},
		Interactive: true,
	}

	p, err := Start(context.Background(), cfg, opts)
	require.NoError(t, err)

	lines, status, err := p.Wait()
	require.NoError(t, err)
	require.Empty(t, status)
	require.Equal(t, []string{"from-pty"}, lines)
}
