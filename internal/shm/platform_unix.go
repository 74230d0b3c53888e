//go:build linux || darwin || freebsd || netbsd || openbsd

package shm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const defaultPerm = 0o600

// MapRegion creates or attaches to a file-backed shared memory region.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	perm := opts.Perm
	if perm == 0 {
		perm = defaultPerm
	}
	flags := unix.O_RDWR | unix.O_CLOEXEC
	if opts.Create {
		//ignore mkdir error, open reports it
		_ = os.MkdirAll(filepath.Dir(opts.Path), 0o755)
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(opts.Path, flags, perm)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, ErrExist
		}
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	size := opts.Size
	if opts.Create {
		if size <= 0 {
			_ = unix.Close(fd)
			_ = unix.Unlink(opts.Path)
			return nil, fmt.Errorf("create %s: invalid size %d", opts.Path, size)
		}
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(opts.Path)
			return nil, fmt.Errorf("ftruncate: %w", err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("fstat: %w", err)
		}
		size = int(st.Size)
		if size == 0 {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("attach %s: %w", opts.Path, os.ErrNotExist)
		}
	}

	addr, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if opts.Create {
			_ = unix.Unlink(opts.Path)
		}
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &MappedRegion{
		Addr:    addr,
		Path:    opts.Path,
		Created: opts.Create,
		fd:      fd,
	}, nil
}

// UnmapRegion unmaps the region and closes its file descriptor.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	var firstErr error
	if err := unix.Munmap(region.Addr); err != nil {
		firstErr = fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	if err := unix.Close(region.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close fd %d: %w", region.fd, err)
	}
	return firstErr
}

// RemoveRegion unlinks the backing file. Mappings held by other processes stay valid.
func RemoveRegion(path string) error {
	if err := unix.Unlink(path); err != nil {
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}
