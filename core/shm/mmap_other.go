//go:build !unix

package shm

import (
	"os"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// Supported reports whether shared tables work on this platform.
const Supported = false

func mapFile(*os.File, int) ([]byte, error) {
	return nil, errors.ErrUnsupportedPlatform
}

func unmap([]byte) error { return nil }
