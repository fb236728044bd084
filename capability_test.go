package ctlplane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilityHas(t *testing.T) {
	c := CapInteractive | CapErrD

	require.True(t, c.Has(CapInteractive))
	require.True(t, c.Has(CapErrD))
	require.True(t, c.Has(CapInteractive|CapErrD))
	require.False(t, c.Has(CapPWInput))
	require.False(t, c.Has(CapInteractive|CapPWInput))
}

func TestCapabilityZeroValue(t *testing.T) {
	var c Capability
	require.False(t, c.Has(CapInteractive))
	require.True(t, c.Has(0))
}
