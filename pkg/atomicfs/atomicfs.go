package atomicfs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cuemby/vaultstore/pkg/log"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

var logger = log.WithComponent("atomicfs")

func randomName() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// WriteBufferToFile writes bytes to a temp file inside tmpRoot, fsyncs it,
// then renames it into finalPath. The rename is the linearization point:
// any observer sees either the old contents (or nothing) or the complete
// new contents, never a partial write.
func WriteBufferToFile(finalPath, tmpRoot string, data []byte) error {
	name, err := randomName()
	if err != nil {
		return vaulterr.NewIOError("rand", "", err)
	}
	tmpPath := filepath.Join(tmpRoot, name)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return vaulterr.NewIOError("open", tmpPath, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return vaulterr.NewIOError("write", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return vaulterr.NewIOError("fsync", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return vaulterr.NewIOError("close", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return vaulterr.NewIOError("rename", finalPath, err)
	}
	return nil
}

// DirCommit is returned by WriteDirectory; Commit renames the staged
// directory into place. Collision with an existing directory at
// finalPath returns a *vaulterr.IOError whose Err carries the OS
// EEXIST/ENOTEMPTY/EPERM error, so callers (notably pkg/lock) can
// distinguish "already taken" from other I/O failures.
type DirCommit struct {
	tmpPath   string
	finalPath string
	done      bool
	committed bool
}

// Commit renames the staged directory into finalPath. It is not
// idempotent: calling it twice returns an error the second time.
func (c *DirCommit) Commit() error {
	if c.done {
		return fmt.Errorf("atomicfs: directory commit already used for %s", c.finalPath)
	}
	c.done = true
	// rename(2) silently replaces an existing empty directory, so an
	// existing finalPath is reported as EEXIST before renaming.
	if _, err := os.Lstat(c.finalPath); err == nil {
		return vaulterr.NewIOError("rename", c.finalPath, &os.PathError{Op: "rename", Path: c.finalPath, Err: syscall.EEXIST})
	}
	if err := os.Rename(c.tmpPath, c.finalPath); err != nil {
		return vaulterr.NewIOError("rename", c.finalPath, err)
	}
	c.committed = true
	return nil
}

// Abandon removes the staged directory without committing it. Safe to
// call after a failed Commit or when the caller decides not to proceed.
func (c *DirCommit) Abandon() error {
	if c.committed {
		return nil
	}
	c.done = true
	if err := os.RemoveAll(c.tmpPath); err != nil {
		return vaulterr.NewIOError("removeall", c.tmpPath, err)
	}
	return nil
}

// TmpPath returns the staged directory's path so the caller can populate
// it before calling Commit.
func (c *DirCommit) TmpPath() string { return c.tmpPath }

// WriteDirectory creates a fresh, empty temp directory under tmpRoot and
// returns it along with a commit handle. The caller populates the temp
// directory (writing files, creating subdirectories), then calls
// Commit to atomically rename it into finalPath.
func WriteDirectory(finalPath, tmpRoot string) (*DirCommit, error) {
	name, err := randomName()
	if err != nil {
		return nil, vaulterr.NewIOError("rand", "", err)
	}
	tmpPath := filepath.Join(tmpRoot, name)
	if err := os.MkdirAll(tmpPath, 0o700); err != nil {
		return nil, vaulterr.NewIOError("mkdir", tmpPath, err)
	}
	return &DirCommit{tmpPath: tmpPath, finalPath: finalPath}, nil
}

// DeleteDirectory makes a directory's disappearance atomic, including for
// populous directories, by first renaming it out of its parent (a single
// rename syscall, invisible the instant it completes) and only then
// recursively removing the renamed copy.
func DeleteDirectory(path, tmpRoot string) error {
	name, err := randomName()
	if err != nil {
		return vaulterr.NewIOError("rand", "", err)
	}
	tmpPath := filepath.Join(tmpRoot, name)
	if err := os.Rename(path, tmpPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return vaulterr.NewIOError("rename", path, err)
	}
	if err := os.RemoveAll(tmpPath); err != nil {
		logger.Warn().Str("path", tmpPath).Err(err).Msg("failed to remove renamed-aside directory")
		return vaulterr.NewIOError("removeall", tmpPath, err)
	}
	return nil
}

// EnsureDataTree bootstraps the on-disk layout for a fresh data directory:
// _tmp for staging, _users for accounts, _locks for the lock manager, and
// one subdirectory per named top-level collection.
func EnsureDataTree(root string, collectionNames []string) error {
	dirs := append([]string{"_tmp", "_users", "_locks"}, collectionNames...)
	for _, d := range dirs {
		p := filepath.Join(root, d)
		if err := os.MkdirAll(p, 0o700); err != nil {
			return vaulterr.NewIOError("mkdir", p, err)
		}
	}
	return nil
}
