package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersExplicitInstance(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("MARKET_INSTANCE_ID", "api-7")
	require.Equal(t, "api-7", GetID())
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("MARKET_INSTANCE_ID", "  ")
	t.Setenv("DYNO", "worker.2")
	require.Equal(t, "worker.2", GetID())
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("MARKET_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	require.NotEmpty(t, GetID())
}
