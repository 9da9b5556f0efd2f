/*
Package lock implements the Store's directory-based advisory locks.

A lock is a directory at _locks/<lockId>/ containing one metadata file
(JSON {"userName": "..."}) and one or more expire-<timestamp> marker
files; the lock's existence is the lock, and the maximum expire
timestamp present is its effective expiry. Acquisition races are
resolved by the filesystem: two commits of the same directory name can
never both succeed, so exactly one acquirer wins.

A stale lock (one whose holder crashed or was killed before releasing)
is reclaimed by any other acquirer, but only after that acquirer wins
a secondary "<lockId>.expiry" lock, re-checks staleness, and deletes the
primary directory. The secondary lock exists purely so two racing
reclaimers don't both delete (and both believe they now own) the same
directory.

	┌──────────────── ACQUIRE ────────────────┐
	│ stage metadata + expire file in _tmp     │
	│ commit staged dir as _locks/<id>/        │
	│   success → lock held, renewal started   │
	│   EEXIST  → read holder, check staleness │
	│               fresh → LockInUseError     │
	│               stale → reclaim, retry     │
	└───────────────────────────────────────────┘

Renewal runs on a per-Lock timer; release stops the timer and
atomic-deletes the directory. Both are idempotent against an
already-expired or already-released lock.
*/
package lock
