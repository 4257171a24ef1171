package restyutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesystemOutputTouchesNothingUntilFirstWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")

	out := NewFilesystemOutput(dir)
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err),
		"constructing the output must not create the dump directory")

	out.Write("1", "GET / HTTP/1.1")
	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.Equal(t, "GET / HTTP/1.1", string(contents))
}

func TestFilesystemOutputClearsPreviousRun(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "42")
	require.NoError(t, os.WriteFile(stale, []byte("old dump"), 0600))

	out := NewFilesystemOutput(dir)
	out.Write("1", "fresh dump")

	_, err := os.Stat(stale)
	require.True(t, os.IsNotExist(err))
	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.Equal(t, "fresh dump", string(contents))
}
