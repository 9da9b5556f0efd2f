/*
Package log provides structured logging for the vault store using zerolog.

The log package wraps zerolog to provide JSON or human-readable console
logging, a global level filter, and component-scoped child loggers. Every
package in the store obtains its logger via log.WithComponent("name")
rather than importing zerolog directly, so call sites stay decoupled from
the logging backend.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	storeLog := log.WithComponent("store")
	storeLog.Info().Str("collection", "clientFile").Msg("object created")

	lockLog := log.WithLockID("clientFile-abc123")
	lockLog.Warn().Msg("lock is stale, reclaiming")

# Design

A single package-level Logger is configured once via Init and read by
every WithComponent/WithLockID/WithObjectID/WithCollection call; there is
no per-Session logger state, since log destination and level are process
configuration, not session configuration. Never log secrets, passwords,
or decrypted object payloads: only ids, collection names, and error
values.
*/
package log
