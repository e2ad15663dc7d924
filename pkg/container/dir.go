package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/redbco/redb-archive/pkg/logger"
)

// DirStore keeps containers as directories below a root.
type DirStore struct {
	root     string
	log      *logger.Logger
	mu       sync.Mutex
	finished map[string]bool
}

// NewDirStore creates root if needed.
func NewDirStore(root string, log *logger.Logger) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &DirStore{root: root, log: logger.OrNop(log), finished: make(map[string]bool)}, nil
}

// Root returns the directory the store writes to.
func (s *DirStore) Root() string { return s.root }

func (s *DirStore) resolve(container, name string) (string, error) {
	loc := Join(container, name)
	if !validName(loc) {
		return "", fmt.Errorf("invalid location %q", loc)
	}
	return filepath.Join(s.root, filepath.FromSlash(loc)), nil
}

func (s *DirStore) Create(_ context.Context, container, name string) (io.WriteCloser, error) {
	s.mu.Lock()
	done := s.finished[container]
	s.mu.Unlock()
	if done && container != "" {
		return nil, fmt.Errorf("container %s already finished", container)
	}

	full, err := s.resolve(container, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f, nil
}

func (s *DirStore) Finish(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[container] = true
	s.log.Debugf("finished container %q", container)
	return nil
}

func (s *DirStore) Open(_ context.Context, container, name string) (io.ReadCloser, error) {
	full, err := s.resolve(container, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, Join(container, name))
		}
		return nil, fmt.Errorf("failed to open %s: %w", Join(container, name), err)
	}
	return f, nil
}
