//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package mmfile

import "os"

// Supported reports whether Map returns a real memory mapping.
const Supported = false

// Map reads the entire file when mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
