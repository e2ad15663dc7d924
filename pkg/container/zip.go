package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/redbco/redb-archive/pkg/logger"
)

// ZipStore writes every container into one zip file, or reads one back.
// Entries may be written concurrently with each other; each is spooled to a
// temporary file and appended to the archive when its writer is closed.
type ZipStore struct {
	log *logger.Logger

	mu       sync.Mutex
	file     *os.File
	zw       *zip.Writer
	method   uint16
	spoolDir string
	names    map[string]bool
	closed   bool

	zr    *zip.ReadCloser
	index map[string]*zip.File
}

// CreateZip starts a new archive at path. Entries are deflated unless
// store is true.
func CreateZip(path string, store bool, spoolDir string, log *logger.Logger) (*ZipStore, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	method := zip.Deflate
	if store {
		method = zip.Store
	}
	return &ZipStore{
		log:      logger.OrNop(log),
		file:     f,
		zw:       zip.NewWriter(f),
		method:   method,
		spoolDir: spoolDir,
		names:    make(map[string]bool),
	}, nil
}

// OpenZip opens an existing archive for reading.
func OpenZip(path string, log *logger.Logger) (*ZipStore, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	index := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		index[f.Name] = f
	}
	return &ZipStore{log: logger.OrNop(log), zr: zr, index: index}, nil
}

type zipEntry struct {
	store *ZipStore
	name  string
	spool *os.File
	done  bool
}

func (e *zipEntry) Write(p []byte) (int, error) {
	return e.spool.Write(p)
}

func (e *zipEntry) Close() error {
	if e.done {
		return nil
	}
	e.done = true
	defer os.Remove(e.spool.Name())
	defer e.spool.Close()

	if _, err := e.spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind spool for %s: %w", e.name, err)
	}
	return e.store.append(e.name, e.spool)
}

func (s *ZipStore) append(name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("archive closed before %s was written", name)
	}
	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   s.method,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}

func (s *ZipStore) Create(_ context.Context, container, name string) (io.WriteCloser, error) {
	if s.zw == nil {
		return nil, ErrReadOnly
	}
	loc := Join(container, name)
	if !validName(loc) {
		return nil, fmt.Errorf("invalid location %q", loc)
	}

	s.mu.Lock()
	if s.names[loc] {
		s.mu.Unlock()
		return nil, fmt.Errorf("archive entry %s already exists", loc)
	}
	s.names[loc] = true
	s.mu.Unlock()

	spool, err := os.CreateTemp(s.spoolDir, "archive-entry-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool for %s: %w", loc, err)
	}
	return &zipEntry{store: s, name: loc, spool: spool}, nil
}

// Finish is a no-op: containers inside one zip share the archive's lifetime.
func (s *ZipStore) Finish(_ context.Context, container string) error {
	s.log.Debugf("finished container %q", container)
	return nil
}

func (s *ZipStore) Open(_ context.Context, container, name string) (io.ReadCloser, error) {
	if s.index == nil {
		return nil, errors.New("archive opened for writing")
	}
	loc := Join(container, name)
	f, ok := s.index[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, loc)
	}
	return f.Open()
}

// Close finalizes a written archive or releases a read one.
func (s *ZipStore) Close() error {
	if s.zr != nil {
		return s.zr.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.zw.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return s.file.Close()
}
