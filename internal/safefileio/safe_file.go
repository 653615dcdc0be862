package safefileio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// FileSystem opens files with symlink protection.
type FileSystem interface {
	SafeOpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

// FileSystemConfig configures NewFileSystem.
type FileSystemConfig struct {
	// DisableOpenat2 forces the portable open-then-verify path even where
	// openat2(RESOLVE_NO_SYMLINKS) is available.
	DisableOpenat2 bool
}

type osFS struct {
	openat2Available bool
}

// NewFileSystem returns the local file system.
func NewFileSystem(cfg FileSystemConfig) FileSystem {
	return &osFS{openat2Available: !cfg.DisableOpenat2 && isOpenat2Available()}
}

var defaultFS = NewFileSystem(FileSystemConfig{})

// SafeOpenFile opens name with flag and perm, refusing symbolic links in
// the final component and in every parent directory.
func (fs *osFS) SafeOpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	absPath, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}
	return fs.safeOpenFileInternal(absPath, flag|syscall.O_NOFOLLOW, perm)
}

// safeOpenFileFallback opens with O_NOFOLLOW and then checks the parent
// directories, which covers the final component atomically and the parents
// after the fact.
func safeOpenFileFallback(absPath string, flag int, perm os.FileMode) (*os.File, error) {
	// #nosec G304 - the path is absolute and opened with O_NOFOLLOW
	file, err := os.OpenFile(absPath, flag|syscall.O_NOFOLLOW, perm)
	if err != nil {
		switch {
		case os.IsExist(err):
			return nil, ErrFileExists
		case isNoFollowError(err):
			return nil, ErrIsSymlink
		default:
			return nil, err
		}
	}
	if err := verifyPathComponents(absPath); err != nil {
		closeQuietly(file)
		return nil, err
	}
	return file, nil
}

// isNoFollowError reports whether err is what O_NOFOLLOW returns for a
// symlink: ELOOP, or EMLINK on FreeBSD.
func isNoFollowError(err error) bool {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return errors.Is(pathErr.Err, syscall.ELOOP) || errors.Is(pathErr.Err, syscall.EMLINK)
}

// verifyPathComponents checks that no parent directory of absPath is a symbolic link.
func verifyPathComponents(absPath string) error {
	current := filepath.Dir(absPath)
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}
		fi, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}
		current = parent
	}
}

// validateFile checks through the open descriptor that the file is regular.
func validateFile(file *os.File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, filePath)
	}
	return fileInfo, nil
}

func closeQuietly(file *os.File) {
	if err := file.Close(); err != nil {
		slog.Warn("failed to close file", slog.String("path", file.Name()), slog.Any("error", err))
	}
}

// OpenForRead opens a regular file read-only and returns it with its FileInfo.
func OpenForRead(filePath string) (*os.File, os.FileInfo, error) {
	file, err := defaultFS.SafeOpenFile(filePath, os.O_RDONLY, 0)
	if err != nil {
		return nil, nil, err
	}
	info, err := validateFile(file, filePath)
	if err != nil {
		closeQuietly(file)
		return nil, nil, err
	}
	return file, info, nil
}

// ReadFile reads a whole regular file, failing with ErrFileTooLarge if it is
// larger than maxSize bytes.
func ReadFile(filePath string, maxSize int64) ([]byte, error) {
	file, info, err := OpenForRead(filePath)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(file)

	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, filePath, info.Size(), maxSize)
	}
	// The size may change after Stat; the limit still holds.
	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, filePath)
	}
	return content, nil
}

// CreateFile creates a new file for writing. It fails with ErrFileExists if
// the path exists.
func CreateFile(filePath string, perm os.FileMode) (*os.File, error) {
	return defaultFS.SafeOpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}
