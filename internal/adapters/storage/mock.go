package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileStorage is an in-memory implementation of FileStorage for testing
type MockFileStorage struct {
	mu       sync.RWMutex
	files    map[string]mockFile
	failures int
}

type mockFile struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// NewMockFileStorage creates a new MockFileStorage instance
func NewMockFileStorage() *MockFileStorage {
	return &MockFileStorage{
		files: make(map[string]mockFile),
	}
}

// FailNext makes the next n operations fail with a retryable error
func (m *MockFileStorage) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// injected reports a pending injected failure. Callers hold the write lock.
func (m *MockFileStorage) injected(op, key string) error {
	if m.failures > 0 {
		m.failures--
		return NewStorageError(op, key, ErrStorageUnavailable, true)
	}
	return nil
}

// Store implements FileStorage.Store
func (m *MockFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("Store", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("Store", key); err != nil {
		return err
	}
	if _, exists := m.files[key]; exists && (opts == nil || !opts.Overwrite) {
		return NewStorageError("Store", key, ErrFileAlreadyExists, false)
	}

	file := mockFile{
		data:         append([]byte(nil), data...),
		lastModified: time.Now(),
	}
	if opts != nil {
		file.contentType = opts.ContentType
	}
	m.files[key] = file
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (m *MockFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("Retrieve", key); err != nil {
		return nil, err
	}
	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("Retrieve", key, ErrFileNotFound, false)
	}
	return append([]byte(nil), file.data...), nil
}

// Delete implements FileStorage.Delete
func (m *MockFileStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; !ok {
		return NewStorageError("Delete", key, ErrFileNotFound, false)
	}
	delete(m.files, key)
	return nil
}

// Exists implements FileStorage.Exists
func (m *MockFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[key]
	return ok, nil
}

// List implements FileStorage.List
func (m *MockFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
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

// Close implements FileStorage.Close
func (m *MockFileStorage) Close() error {
	return nil
}
