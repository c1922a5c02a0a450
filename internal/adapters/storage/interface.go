// Package storage stores opaque blobs (inventory archives) on the local
// filesystem, in S3, or in memory.
package storage

import (
	"context"
	"time"
)

// FileMetadata describes a stored object
type FileMetadata struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// StoreOptions controls how an object is written
type StoreOptions struct {
	ContentType string `json:"content_type,omitempty"`
	Overwrite   bool   `json:"overwrite,omitempty"`
}

// FileStorage is implemented by every storage backend
type FileStorage interface {
	// Store writes data under key. Without Overwrite an existing key is an error.
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error

	// Retrieve reads the object stored under key
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the objects whose key starts with prefix, ordered by key
	List(ctx context.Context, prefix string) ([]FileMetadata, error)

	// Close releases backend resources
	Close() error
}

// StorageConfig selects and configures a backend
type StorageConfig struct {
	Type      string `json:"type" mapstructure:"type"`
	BasePath  string `json:"base_path" mapstructure:"base_path"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Region    string `json:"region" mapstructure:"region"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `json:"path_style" mapstructure:"path_style"`
}
