// ABOUTME: Entropy source used to generate device secrets
// ABOUTME: Reads the platform random device and fails loudly instead of falling back

package random

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultDevice is the entropy device used by Default.
const DefaultDevice = "/dev/urandom"

// ErrUnavailable is returned when no strong entropy could be obtained.
var ErrUnavailable = errors.New("random source unavailable")

// Source fills buffers with cryptographically strong random bytes.
type Source interface {
	// Fill fills buf completely or returns an error.
	Fill(buf []byte) error
}

// DeviceSource reads randomness from a character device such as /dev/urandom.
type DeviceSource struct {
	Path string
}

// Default returns a DeviceSource for DefaultDevice.
func Default() *DeviceSource {
	return &DeviceSource{Path: DefaultDevice}
}

// Fill opens the device and reads exactly len(buf) bytes from it.
func (s *DeviceSource) Fill(buf []byte) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrUnavailable, s.Path, err)
	}
	defer f.Close()

	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("%w: reading %d bytes from %s: %v", ErrUnavailable, len(buf), s.Path, err)
	}
	return nil
}

// Reader adapts a Source to io.Reader. Every Read fills p entirely or fails.
func Reader(src Source) io.Reader {
	return sourceReader{src: src}
}

type sourceReader struct {
	src Source
}

func (r sourceReader) Read(p []byte) (int, error) {
	if err := r.src.Fill(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
