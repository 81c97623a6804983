package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-file")

	exists, err := Exists(path)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
	exists, err = Exists(path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-file")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	isDir, err := IsDir(dir)
	require.NoError(t, err)
	require.True(t, isDir)

	isDir, err = IsDir(path)
	require.NoError(t, err)
	require.False(t, isDir)
}

func TestIsEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsEmpty(dir)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test-file"), []byte{}, 0o644))
	empty, err = IsEmpty(dir)
	require.NoError(t, err)
	require.False(t, empty)
}
