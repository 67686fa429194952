// File: internal/patcher/snapshot_test.go
package patcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRewritesBytes(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	snap, err := captureSnapshot(root, []string{"a.txt"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("mutated"), 0o644))
	require.NoError(t, snap.restore())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(raw))
}

func TestSnapshotRemovesCreatedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	// Captured as absent: the patch would create it.
	snap, err := captureSnapshot(root, []string{"new/file.txt"})
	require.NoError(t, err)

	created := filepath.Join(root, "new", "file.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(created), 0o755))
	require.NoError(t, os.WriteFile(created, []byte("fresh"), 0o644))

	require.NoError(t, snap.restore())
	_, statErr := os.Stat(created)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSnapshotRestoreIsRepeatable(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	snap, err := captureSnapshot(root, []string{"a.txt"})
	require.NoError(t, err)

	for range 2 {
		require.NoError(t, os.WriteFile(path, []byte("mutated"), 0o644))
		require.NoError(t, snap.restore())
		raw, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "original", string(raw))
	}
}

func TestSnapshotCaptureFailsClosed(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	// A directory where a file is expected makes the read fail.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "weird"), 0o755))

	_, err := captureSnapshot(root, []string{"weird"})
	assert.Error(t, err)
}

func TestSnapshotPaths(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))

	snap, err := captureSnapshot(root, []string{"a.txt", "missing.txt"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "missing.txt"}, snap.paths())
}
