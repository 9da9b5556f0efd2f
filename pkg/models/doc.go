/*
Package models provides example ModelDefinitions exercising the
collection engine end to end: ClientFile, a mutable top-level model
indexed on the client's first and last name plus a record id, and its
mutable child ProgNote, indexed on note type and status. These mirror
the shapes used throughout the end-to-end scenarios the collection
engine is built to satisfy; they are example wiring for pkg/store and
cmd/vaultstore, not additional Store semantics.
*/
package models
