package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFileStorage keeps documents in memory. It backs tests and single-process deployments
// where the archive may be lost on restart.
type MemoryFileStorage struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// NewMemoryFileStorage creates an empty in-memory store
func NewMemoryFileStorage() *MemoryFileStorage {
	return &MemoryFileStorage{files: make(map[string]memoryFile)}
}

// Store implements FileStorage
func (m *MemoryFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if opts != nil && !opts.Overwrite {
		if _, exists := m.files[key]; exists {
			return NewStorageError("store", key, ErrFileAlreadyExists, false)
		}
	}

	contentType := contentTypeFor(key)
	if opts != nil && opts.ContentType != "" {
		contentType = opts.ContentType
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	m.files[key] = memoryFile{data: copied, contentType: contentType, lastModified: time.Now().UTC()}
	return nil
}

// Retrieve implements FileStorage
func (m *MemoryFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
	}

	copied := make([]byte, len(file.data))
	copy(copied, file.data)
	return copied, nil
}

// Delete implements FileStorage
func (m *MemoryFileStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; !ok {
		return NewStorageError("delete", key, ErrFileNotFound, false)
	}
	delete(m.files, key)
	return nil
}

// Exists implements FileStorage
func (m *MemoryFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[key]
	return ok, nil
}

// GetMetadata implements FileStorage
func (m *MemoryFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("metadata", key, ErrFileNotFound, false)
	}
	return &FileMetadata{
		Key:          key,
		Size:         int64(len(file.data)),
		ContentType:  file.contentType,
		LastModified: file.lastModified,
	}, nil
}

// List implements FileStorage
func (m *MemoryFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []FileMetadata
	for key, file := range m.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		files = append(files, FileMetadata{
			Key:          key,
			Size:         int64(len(file.data)),
			ContentType:  file.contentType,
			LastModified: file.lastModified,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage
func (m *MemoryFileStorage) Close() error {
	return nil
}
