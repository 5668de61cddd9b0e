// Package store persists device authorization records and device keys on the
// local filesystem.
//
// # Architecture
//
// The package has two layers:
//
//   - Attrs: a generic attribute store. Every identity owns a directory and
//     every attribute is one small file inside it. Writes go through a
//     temporary file in the same directory followed by a rename, so a crash
//     leaves either the old or the new content.
//   - Store: the device store. It composes Attrs with package key and
//     implements DeviceStore, the interface used by the service layer.
//
// MockStore implements DeviceStore in memory for tests of callers.
//
// # Layout
//
//	<root>/devices/<uid>/device      primary record (YAML, 0644)
//	<root>/devices/<uid>/key         secret (hex, 0600)
//	<root>/devices/<uid>/conntime    timestamps, decimal text (0644)
//	<root>/devices/<uid>/authtime
//	<root>/devices/<uid>/storetime
//
// A device record exists iff the device file exists. Records and keys have
// independent lifecycles: DelDevice keeps the key and DelKey keeps the
// record. Forget removes both.
//
// # Error Handling
//
// Every operation returns nil or an *Error carrying a Kind:
//
//   - KindNotFound: identity, attribute, or key does not exist
//   - KindBadKey: key file has the wrong size or is not hex
//   - KindBadData: record or timestamp cannot be parsed
//   - KindIO: filesystem failure (permissions, disk full, ...)
//   - KindInvalid: malformed identity or attribute name
//
// Errors match the sentinels ErrNotFound, ErrBadKey, ErrBadData, ErrIO and
// ErrInvalid with errors.Is. The batch deletes DelAttrs and DelTimes ignore
// KindNotFound per name and abort on anything else. Nothing is retried.
//
// # Concurrency
//
// The store has no locks. It assumes a single writer process whose callers
// are serialized by the service layer.
//
// # Testing
//
// Use NewMockStore() for unit tests of callers, or Open(t.TempDir()) for
// tests against the real filesystem layout.
package store
