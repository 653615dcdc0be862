// Package safefileio opens files without following symbolic links, so an
// input or log path cannot be redirected between validation and use.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the path or one of its parents is a symbolic link.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file exceeds the caller's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileExists indicates that a file to be created already exists.
	ErrFileExists = errors.New("file exists")

	// ErrNotRegularFile indicates a device, pipe, directory or other non-regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)
