package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

// FileMetadata describes a stored document
type FileMetadata struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

// StoreOptions controls how a document is written
type StoreOptions struct {
	ContentType string `json:"contentType,omitempty"`
	Overwrite   bool   `json:"overwrite,omitempty"`
}

// FileStorage archives rendered invoice documents
type FileStorage interface {
	// Store writes data under key
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error

	// Retrieve reads the document stored under key
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the document stored under key
	Delete(ctx context.Context, key string) error

	// Exists reports whether a document is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// GetMetadata describes the document stored under key
	GetMetadata(ctx context.Context, key string) (*FileMetadata, error)

	// List returns the documents whose key starts with prefix
	List(ctx context.Context, prefix string) ([]FileMetadata, error)

	// Close releases resources held by the implementation
	Close() error
}

// StorageConfig selects and configures a storage implementation
type StorageConfig struct {
	Type     string `json:"type" yaml:"type"`           // "local" or "memory"
	BasePath string `json:"base_path" yaml:"base_path"` // root directory for local storage
}

// InvoiceDocumentKey returns the archive key of an invoice PDF
func InvoiceDocumentKey(tenantID, invoiceNumber string) string {
	return path.Join(sanitizeSegment(tenantID), sanitizeSegment(invoiceNumber)+".pdf")
}

// sanitizeSegment keeps a key segment inside its directory
func sanitizeSegment(segment string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	cleaned := replacer.Replace(strings.TrimSpace(segment))
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

// validateKey rejects empty keys and keys escaping the storage root
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("%w: %s", ErrInvalidKey, key)
		}
	}
	return nil
}
