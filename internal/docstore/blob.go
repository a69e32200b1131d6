package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BlobStore is a key-based blob store: the storage contract behind the
// file-backed document store. Keys are collection names.
type BlobStore interface {
	// Get returns the blob at key, or ok=false if it has never been written.
	Get(key string) (data []byte, ok bool, err error)
	// Set replaces the blob at key.
	Set(key string, data []byte) error
	// Keys lists every key that has been written.
	Keys() ([]string, error)
}

// FileBlobStore persists each blob as a JSON file in a directory.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates the directory if needed.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileBlobStore{dir: dir}, nil
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileBlobStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, true, nil
}

// Set writes to a temp file and renames it into place so readers never see a
// partially written blob.
func (s *FileBlobStore) Set(key string, data []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("rename blob %s: %w", key, err)
	}
	return nil
}

func (s *FileBlobStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) == ".json" {
			keys = append(keys, name[:len(name)-len(".json")])
		}
	}
	return keys, nil
}

// MemBlobStore is an in-memory BlobStore used in tests.
type MemBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemBlobStore() *MemBlobStore {
	return &MemBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemBlobStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (s *MemBlobStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *MemBlobStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}
