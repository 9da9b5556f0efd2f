package atomicfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tmpRootFor(t *testing.T, root string) string {
	tmp := filepath.Join(root, "_tmp")
	require.NoError(t, os.MkdirAll(tmp, 0o700))
	return tmp
}

func TestWriteBufferToFileAtomic(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	final := filepath.Join(root, "revision")

	require.NoError(t, WriteBufferToFile(final, tmpRoot, []byte("payload-v1")))
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	require.Equal(t, "payload-v1", string(data))

	// Overwriting writes a new temp file and renames again; readers never
	// observe a truncated or partial file.
	require.NoError(t, WriteBufferToFile(final, tmpRoot, []byte("payload-v2-longer")))
	data, err = os.ReadFile(final)
	require.NoError(t, err)
	require.Equal(t, "payload-v2-longer", string(data))

	entries, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	require.Empty(t, entries, "no leftover temp files")
}

func TestWriteDirectoryCommit(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	final := filepath.Join(root, "objdir")

	commit, err := WriteDirectory(final, tmpRoot)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(commit.TmpPath(), "rev1"), []byte("x"), 0o600))
	require.NoError(t, commit.Commit())

	_, err = os.Stat(filepath.Join(final, "rev1"))
	require.NoError(t, err)

	// A second commit on the same handle must fail; it is single-use.
	require.Error(t, commit.Commit())
}

func TestWriteDirectoryCollision(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	final := filepath.Join(root, "lockdir")

	first, err := WriteDirectory(final, tmpRoot)
	require.NoError(t, err)
	require.NoError(t, first.Commit())

	second, err := WriteDirectory(final, tmpRoot)
	require.NoError(t, err)
	err = second.Commit()
	require.Error(t, err, "committing into an existing directory must fail")
}

func TestWriteDirectoryAbandon(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	final := filepath.Join(root, "abandoned")

	commit, err := WriteDirectory(final, tmpRoot)
	require.NoError(t, err)
	tmpPath := commit.TmpPath()
	require.NoError(t, commit.Abandon())

	_, err = os.Stat(tmpPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(final)
	require.True(t, os.IsNotExist(err))
}

func TestDeleteDirectoryPopulous(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	target := filepath.Join(root, "clientFile", "obj1")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "progNotes"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(target, "rev1"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(target, "progNotes", "child-rev"), []byte("y"), 0o600))

	require.NoError(t, DeleteDirectory(target, tmpRoot))
	_, err := os.Stat(target)
	require.True(t, os.IsNotExist(err))
}

func TestDeleteDirectoryMissingIsNoop(t *testing.T) {
	root := t.TempDir()
	tmpRoot := tmpRootFor(t, root)
	require.NoError(t, DeleteDirectory(filepath.Join(root, "does-not-exist"), tmpRoot))
}

func TestEnsureDataTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureDataTree(root, []string{"clientFile"}))

	for _, d := range []string{"_tmp", "_users", "_locks", "clientFile"} {
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
