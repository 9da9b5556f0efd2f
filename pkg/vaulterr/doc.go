/*
Package vaulterr defines the typed error kinds returned across the vault
store. Fallible operations in pkg/atomicfs, pkg/lock, pkg/schema,
pkg/store, and pkg/session return one of these kinds (or wrap one) for
the failures listed below, so callers can branch on failure with
errors.As instead of string matching. A few failures come back as plain
errors instead: reusing a directory commit handle, running out of
reclaim-guard retries or a cancelled context in pkg/lock, and key
generation or derivation errors from pkg/security.

# Kinds

  - IOError: any filesystem call failed (open, read, write, rename, remove).
  - ValidationError: a payload failed schema validation before any write.
  - IntegrityError: a decrypted payload's embedded context did not match
    the physical path it was read from.
  - ObjectNotFoundError: a lookup by id found zero matching directories.
  - LockInUseError: a lock is held by another, non-stale holder.
  - UnknownUserNameError, IncorrectPasswordError, DeactivatedAccountError:
    login failures.

None of these are retried internally; they are always surfaced to the
caller.
*/
package vaulterr
