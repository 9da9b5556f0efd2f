/*
Package atomicfs provides the three filesystem primitives every mutation in
the vault store funnels through: a buffered file write, a staged directory
write, and a directory delete, each atomic with respect to any observer.

# Architecture

	┌────────────────────── ATOMIC FS PRIMITIVES ──────────────────────┐
	│                                                                    │
	│  WriteBufferToFile(final, tmpRoot, bytes)                        │
	│      tmpRoot/<random> --write+fsync--> rename --> final          │
	│                                                                    │
	│  WriteDirectory(final, tmpRoot) -> (tmpDir, commit)              │
	│      tmpRoot/<random>/  <-- caller populates -->  rename(final)  │
	│      commit() is the linearization point; collision on an        │
	│      existing final path surfaces as a *vaulterr.IOError whose   │
	│      wrapped errno the lock manager reads as "already held".     │
	│                                                                    │
	│  DeleteDirectory(path, tmpRoot)                                  │
	│      rename(path, tmpRoot/<random>) --> RemoveAll                │
	│      makes disappearance atomic even for populous directories.   │
	└────────────────────────────────────────────────────────────────┘

Rename is the only operation the target filesystems guarantee is atomic;
every higher layer (locks, collections, session bootstrap) is built on
these three calls. Higher layers do call os functions directly in a few
places: to populate a staged directory before Commit, to write lock
renewal markers into a held lock directory (pkg/lock), and to rename an
object directory after an index change (pkg/store). tmpRoot must live on the same filesystem/device
as the destination: rename across devices is not atomic and returns
EXDEV, which these functions surface as a plain *vaulterr.IOError rather
than silently falling back to copy+delete.
*/
package atomicfs
