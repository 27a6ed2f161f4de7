//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris || aix

// internal/blockdev/mmap_unix.go
package blockdev

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tamzrod/datalogger/internal/errs"
)

func mmap(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func msync(b []byte) error {
	if err := unix.Msync(b, unix.MS_SYNC); err != nil {
		return fmt.Errorf("%w: msync: %v", errs.ErrIO, err)
	}
	return nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
