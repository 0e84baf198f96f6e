package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Blob is an object held by MemoryService.
type Blob struct {
	Data        []byte
	ContentType string
}

// MemoryService keeps blobs in process memory. It backs the console when no
// bucket is configured and stands in for R2 in tests.
type MemoryService struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string]Blob
}

var _ StorageService = (*MemoryService)(nil)

func NewMemoryService(baseURL string) *MemoryService {
	return &MemoryService{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string]Blob),
	}
}

func (m *MemoryService) UploadBlob(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = Blob{Data: append([]byte(nil), data...), ContentType: contentType}
	return fmt.Sprintf("%s/%s", m.baseURL, key), nil
}

func (m *MemoryService) DeleteBlob(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, ErrNotFound)
	}
	delete(m.blobs, key)
	return nil
}

// Get returns the blob stored under key.
func (m *MemoryService) Get(key string) (Blob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	return b, ok
}
