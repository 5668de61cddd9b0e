// Package random supplies cryptographically strong random bytes for key
// generation.
//
// The only implementation reads the platform entropy device. There is no
// fallback: if the device cannot be opened or a full read cannot be completed,
// Fill returns an error wrapping ErrUnavailable and key generation fails.
package random
