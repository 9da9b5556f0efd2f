/*
Package store implements the collection engine: per-model create, list,
read, createRevision, listRevisions, readRevisions, and
readLatestRevisions, including nested child collections.

A Collection is constructed for one schema.ModelDefinition and, for a
child model, a reference to its parent Collection. Every operation that
touches an existing object takes a contextualIds slice: the chain of
ancestor object ids (top-level first) that fixes where the collection
physically lives. Resolving a child collection's directory means
recursively resolving its parent's directory and then locating the
parent object by id inside it; the engine never caches a child
collection's path, since a createRevision on any ancestor can rename
its directory out from under it.

Every write goes through pkg/atomicfs; every payload is authenticated-
encrypted with the session's strong key and tagged with
_contextCollectionNames / _contextIds / _collectionName so a later read
can detect a ciphertext that was copied or moved between object
directories (the tamper-detection check, I2). Every filename is
deterministically weak-encrypted so list() can correlate directory
names across process restarts without a separate index.
*/
package store
