package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSource_PairsUpAndDown(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	require.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	upSQL, err := io.ReadAll(up)
	require.NoError(t, err)
	up.Close()

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()

	schema := string(upSQL)
	for _, want := range []string{
		"webhook_requests_idempotency_key_endpoint_key",
		"event_logs_actor_id_fkey",
		"CREATE TABLE IF NOT EXISTS identities",
		"CREATE TABLE IF NOT EXISTS event_mappings",
	} {
		require.True(t, strings.Contains(schema, want), "schema missing %q", want)
	}
}
