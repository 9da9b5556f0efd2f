/*
Package session implements account setup, login, and the Session
handle threaded into every collection construction.

An account lives at _users/<userName>/: account.json carries the
password salt and a deactivated flag, and key holds the account's
strong key, wrapped (AES-256-GCM) under a key derived from the
password via scrypt. Login re-derives the wrapping key from the
supplied password, unwraps the strong key, and, only once the
password has checked out, rejects a deactivated account.

A Session owns its own event broker and metrics registry; neither is
ever process-global, so multiple sessions opened in one process (most
often in tests) never cross-publish events or collide on metric
registration.
*/
package session
