package skiplog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skipped.log")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record("https://example.com/p/1", "missing price data"))
	require.NoError(t, l.Close())

	// Re-opening must not truncate earlier entries.
	l, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record("https://example.com/p/2", "connection timeout"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"https://example.com/p/1 - missing price data\n"+
			"https://example.com/p/2 - connection timeout\n",
		string(data))
}
