// storage.go
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("blob not found")

// StorageService defines the methods for interacting with storage providers.
type StorageService interface {
	// UploadBlob uploads binary data and returns its public URL.
	UploadBlob(ctx context.Context, data []byte, key, contentType string) (string, error)
	// DeleteBlob deletes the blob stored under key.
	DeleteBlob(ctx context.Context, key string) error
}
