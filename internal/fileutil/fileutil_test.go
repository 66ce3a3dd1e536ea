package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomicCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteAtomic(path, []byte("second"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(dir, "nested", "*.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteAtomicFailsWhenParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteAtomic(filepath.Join(blocker, "state.json"), []byte("data"), 0o644)
	assert.Error(t, err)
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.json")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	existed, err := RemoveIfExists(path)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = RemoveIfExists(path)
	require.NoError(t, err)
	assert.False(t, existed)
}
