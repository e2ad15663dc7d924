package archivemodel

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// BytesSource is an in-memory BinarySource.
type BytesSource struct {
	data []byte
}

// NewBytesSource wraps b without copying.
func NewBytesSource(b []byte) *BytesSource { return &BytesSource{data: b} }

func (s *BytesSource) Size() int64 { return int64(len(s.data)) }

func (s *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *BytesSource) Release() error {
	s.data = nil
	return nil
}

// FileSource is content spooled to a temporary file, removed on Release.
type FileSource struct {
	path string
	size int64
	once sync.Once
}

// Spool copies r into a temporary file under dir ("" for the system default).
func Spool(r io.Reader, dir string) (*FileSource, error) {
	f, err := os.CreateTemp(dir, "archive-lob-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to spool content: %w", err)
	}
	return &FileSource{path: f.Name(), size: n}, nil
}

func (s *FileSource) Size() int64 { return s.size }

func (s *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s *FileSource) Release() error {
	var err error
	s.once.Do(func() {
		if rerr := os.Remove(s.path); rerr != nil && !os.IsNotExist(rerr) {
			err = rerr
		}
	})
	return err
}

// OpenerSource adapts a size and an open function, e.g. an archive entry.
type OpenerSource struct {
	N         int64
	OpenFunc  func() (io.ReadCloser, error)
	OnRelease func() error
}

func (s *OpenerSource) Size() int64 { return s.N }

func (s *OpenerSource) Open() (io.ReadCloser, error) { return s.OpenFunc() }

func (s *OpenerSource) Release() error {
	if s.OnRelease == nil {
		return nil
	}
	f := s.OnRelease
	s.OnRelease = nil
	return f()
}

// ReadAll opens src and reads it fully.
func ReadAll(src BinarySource) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
