package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemStore keeps everything in memory and records container lifecycles.
type MemStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	order    []string
	seen     map[string]bool
	finished map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		files:    make(map[string][]byte),
		seen:     make(map[string]bool),
		finished: make(map[string]bool),
	}
}

type memWriter struct {
	store *MemStore
	loc   string
	buf   bytes.Buffer
	done  bool
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.files[w.loc] = w.buf.Bytes()
	return nil
}

func (s *MemStore) Create(_ context.Context, container, name string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if container != "" && s.finished[container] {
		return nil, fmt.Errorf("container %s already finished", container)
	}
	if !s.seen[container] {
		s.seen[container] = true
		s.order = append(s.order, container)
	}
	return &memWriter{store: s, loc: Join(container, name)}, nil
}

func (s *MemStore) Finish(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[container] = true
	return nil
}

func (s *MemStore) Open(_ context.Context, container, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc := Join(container, name)
	data, ok := s.files[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, loc)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Containers returns container names in the order they were first written.
func (s *MemStore) Containers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Files returns the sorted file names inside container.
func (s *MemStore) Files(container string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for loc := range s.files {
		c, name := Split(loc)
		if c == container {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Finished reports whether container was finished.
func (s *MemStore) Finished(container string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[container]
}

// Bytes returns the content at a location.
func (s *MemStore) Bytes(location string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[location]
	return data, ok
}

// Put replaces the content at a location.
func (s *MemStore) Put(location string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[location] = data
}
