// Package key implements the per-device secret used to re-authorize
// previously approved devices.
//
// # Format
//
// A key is Size (32) bytes of random material. On disk it is stored as the
// lowercase hex encoding of those bytes, EncodedSize (64) bytes with no
// trailing newline. A file of any other size, or with non-hex content, is
// reported as ErrBadKey and is never repaired or padded.
//
// # Permissions
//
// Save writes through atomicfile with mode 0600. The temporary file is
// created 0600 and renamed over the target, so the secret is never readable
// by group or others, not even transiently.
//
// # Freshness
//
// Keys returned by Generate are fresh; keys returned by Load are not.
package key
