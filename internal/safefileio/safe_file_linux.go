//go:build linux

package safefileio

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// openat2 constants
const (
	resolveNoSymlinks = 0x04 // RESOLVE_NO_SYMLINKS
	atFdcwd           = -0x64
	sysOpenat2        = 437
)

// openHow mirrors struct open_how.
type openHow struct {
	flags   uint64
	mode    uint64
	resolve uint64
}

// isOpenat2Available probes openat2 on the current directory.
func isOpenat2Available() bool {
	how := openHow{
		flags:   uint64(os.O_RDONLY | syscall.O_DIRECTORY),
		resolve: resolveNoSymlinks,
	}
	fd, err := openat2(atFdcwd, ".", &how)
	if fd >= 0 {
		_ = syscall.Close(fd)
	}
	return err == nil
}

func openat2(dirfd int, pathname string, how *openHow) (int, error) {
	pathBytes, err := syscall.BytePtrFromString(pathname)
	if err != nil {
		return -1, err
	}

	fd, _, errno := syscall.Syscall6(
		sysOpenat2,
		uintptr(dirfd),
		// #nosec G103 - uintptr conversion is required for syscall interface
		uintptr(unsafe.Pointer(pathBytes)),
		// #nosec G103 - uintptr conversion is required for syscall interface
		uintptr(unsafe.Pointer(how)),
		unsafe.Sizeof(*how),
		0, 0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

// safeOpenFileInternal resolves absPath with RESOLVE_NO_SYMLINKS so the
// kernel rejects a symlink in any component, falling back to
// safeOpenFileFallback when openat2 is unavailable.
func (fs *osFS) safeOpenFileInternal(absPath string, flag int, perm os.FileMode) (*os.File, error) {
	if !fs.openat2Available {
		return safeOpenFileFallback(absPath, flag, perm)
	}

	how := openHow{
		// #nosec G115 - open flags are non-negative
		flags:   uint64(flag | syscall.O_CLOEXEC),
		mode:    uint64(perm),
		resolve: resolveNoSymlinks,
	}
	fd, err := openat2(atFdcwd, absPath, &how)
	if err != nil {
		var errno syscall.Errno
		if errors.As(err, &errno) {
			switch errno {
			case syscall.ELOOP:
				return nil, ErrIsSymlink
			case syscall.EEXIST:
				return nil, ErrFileExists
			case syscall.ENOENT:
				return nil, &os.PathError{Op: "open", Path: absPath, Err: os.ErrNotExist}
			}
		}
		return nil, fmt.Errorf("failed to open %s: %w", absPath, err)
	}
	return os.NewFile(uintptr(fd), absPath), nil
}
