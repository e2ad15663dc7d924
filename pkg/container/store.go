// Package container stores archive files and externalized large objects.
// A container is a named group of files; the empty name is the main archive.
package container

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotExist is returned by Open when no file exists at the location.
var ErrNotExist = errors.New("file does not exist")

// ErrReadOnly is returned when writing to a store opened for reading.
var ErrReadOnly = errors.New("store is read-only")

// Store creates and reads files grouped into containers. Finish marks a
// container complete; it is never written again afterwards.
type Store interface {
	Create(ctx context.Context, container, name string) (io.WriteCloser, error)
	Finish(ctx context.Context, container string) error
	Open(ctx context.Context, container, name string) (io.ReadCloser, error)
}

// Join returns the slash-separated location of name inside container.
func Join(container, name string) string {
	if container == "" {
		return path.Clean(name)
	}
	return path.Join(container, name)
}

// Split is the inverse of Join for a location whose last element is the file.
func Split(location string) (container, name string) {
	i := strings.LastIndexByte(location, '/')
	if i < 0 {
		return "", location
	}
	return location[:i], location[i+1:]
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
