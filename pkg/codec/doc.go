/*
Package codec implements the filename codec: packing an ordered list of
byte strings into a single byte string suitable, after weak encryption and
base64url-encoding, for use as a filesystem entry name.

Encoding rules:

  - within a component, the byte 0x00 is escaped as 0x00 0x4C ("L", literal NUL)
  - components are separated by the two-byte sequence 0x00 0x53 ("S", separator)
  - every other byte passes through unchanged

Decode consumes exactly the requested component count; an unterminated
escape sequence or a wrong component count is a fatal, returned error,
so callers never get a silently-truncated result.

An object directory name encodes [index_value_0, ..., index_value_k-1,
id_bytes]; a revision file name encodes [timestamp_utf8, revisionId_bytes].
Both are built here, then weak-encrypted and base64url-encoded by
pkg/security and pkg/store.
*/
package codec
