package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuardCommand(t *testing.T) {
	require.NoError(t, GuardCommand("prod", "up", false))
	require.NoError(t, GuardCommand("prod", "status", false))
	require.NoError(t, GuardCommand("dev", "reset", false))
	require.Error(t, GuardCommand("prod", "down", false))
	require.Error(t, GuardCommand("production", "reset", false))
	require.NoError(t, GuardCommand("prod", "down", true))
}
