//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris || aix)

// internal/blockdev/mmap_other.go
package blockdev

import (
	"errors"
	"os"
)

var errNoMmap = errors.New("blockdev: mmap not supported on this platform")

func mmap(*os.File, int) ([]byte, error) { return nil, errNoMmap }
func msync([]byte) error                 { return errNoMmap }
func munmap([]byte) error                { return errNoMmap }
