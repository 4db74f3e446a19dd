package storage

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// StorageType names a storage implementation
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
)

// Factory creates FileStorage instances from configuration
type Factory struct {
	retryConfig *RetryConfig
	logger      *logrus.Logger
}

// NewFactory creates a storage factory; a nil retry config disables retries
func NewFactory(retryConfig *RetryConfig, logger *logrus.Logger) *Factory {
	return &Factory{retryConfig: retryConfig, logger: logger}
}

// Create builds the configured storage, wrapped with retries when enabled
func (f *Factory) Create(config *StorageConfig) (FileStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	var storage FileStorage
	switch StorageType(strings.ToLower(config.Type)) {
	case StorageTypeLocal, "":
		basePath := config.BasePath
		if basePath == "" {
			basePath = "./data/documents"
		}
		local, err := NewLocalFileStorage(basePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		storage = local
	case StorageTypeMemory:
		storage = NewMemoryFileStorage()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}

	if f.retryConfig != nil {
		storage = NewRetryableFileStorage(storage, f.retryConfig, f.logger)
	}

	return storage, nil
}

// CreateFromConfig creates storage with the default retry configuration
func CreateFromConfig(config *StorageConfig, logger *logrus.Logger) (FileStorage, error) {
	return NewFactory(DefaultRetryConfig(), logger).Create(config)
}
