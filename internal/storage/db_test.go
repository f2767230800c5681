package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	ms, err := migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	require.Equal(t, "001_reports.sql", ms[0].Name)
	require.True(t, strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS reports"))
	for i := 1; i < len(ms); i++ {
		require.Less(t, ms[i-1].Name, ms[i].Name)
	}
}
