//go:build unix

package shm

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Supported reports whether shared tables work on this platform.
const Supported = true

func mapFile(f *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "shm: mmap")
	}
	return mem, nil
}

func unmap(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return errors.Wrap(err, "shm: munmap")
	}
	return nil
}
