package storage

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFileStorage stores documents below a directory on the local filesystem
type LocalFileStorage struct {
	basePath string
}

// NewLocalFileStorage creates the base directory if needed
func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, NewStorageError("init", "", err, false)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, NewStorageError("init", "", err, false)
	}

	return &LocalFileStorage{basePath: absPath}, nil
}

// Store writes the document through a temporary file so readers never see partial content
func (l *LocalFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("store", key, err, false)
	}

	filePath := l.filePath(key)
	if opts != nil && !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return NewStorageError("store", key, ErrFileAlreadyExists, false)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return NewStorageError("store", key, err, true)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return NewStorageError("store", key, err, true)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return NewStorageError("store", key, err, true)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return NewStorageError("store", key, err, true)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return NewStorageError("store", key, err, true)
	}

	return nil
}

// Retrieve reads a stored document
func (l *LocalFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("retrieve", key, err, false)
	}

	data, err := os.ReadFile(l.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStorageError("retrieve", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("retrieve", key, err, true)
	}

	return data, nil
}

// Delete removes a stored document
func (l *LocalFileStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("delete", key, err, false)
	}

	if err := os.Remove(l.filePath(key)); err != nil {
		if os.IsNotExist(err) {
			return NewStorageError("delete", key, ErrFileNotFound, false)
		}
		return NewStorageError("delete", key, err, true)
	}

	return nil
}

// Exists reports whether a document is stored under key
func (l *LocalFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("exists", key, err, false)
	}

	if _, err := os.Stat(l.filePath(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, NewStorageError("exists", key, err, true)
	}

	return true, nil
}

// GetMetadata describes a stored document
func (l *LocalFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("metadata", key, err, false)
	}

	stat, err := os.Stat(l.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStorageError("metadata", key, ErrFileNotFound, false)
		}
		return nil, NewStorageError("metadata", key, err, true)
	}

	return &FileMetadata{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  contentTypeFor(key),
		LastModified: stat.ModTime().UTC(),
	}, nil
}

// List returns stored documents whose key starts with prefix, sorted by key
func (l *LocalFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	var files []FileMetadata

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileMetadata{
			Key:          key,
			Size:         info.Size(),
			ContentType:  contentTypeFor(key),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, NewStorageError("list", prefix, err, true)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage
func (l *LocalFileStorage) Close() error {
	return nil
}

func (l *LocalFileStorage) filePath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
