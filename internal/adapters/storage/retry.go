package storage

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig configures retries of transient storage failures
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
	JitterEnabled bool          `json:"jitter_enabled" yaml:"jitter_enabled"`
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// RetryableOperation is an operation WithRetry may run more than once
type RetryableOperation func(ctx context.Context) error

// WithRetry runs op until it succeeds, fails permanently, or the attempts run out
func WithRetry(ctx context.Context, config *RetryConfig, op RetryableOperation) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= config.MaxAttempts || !IsRetryable(err) {
			break
		}

		timer := time.NewTimer(config.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateDelay applies exponential backoff capped at MaxDelay, plus up to 10% jitter
func (c *RetryConfig) calculateDelay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if c.JitterEnabled {
		delay += rand.Float64() * 0.1 * delay
	}
	return time.Duration(delay)
}

// RetryableFileStorage retries transient failures of the wrapped storage
type RetryableFileStorage struct {
	storage FileStorage
	config  *RetryConfig
	logger  *logrus.Logger
}

// NewRetryableFileStorage wraps storage with retry logic
func NewRetryableFileStorage(storage FileStorage, config *RetryConfig, logger *logrus.Logger) *RetryableFileStorage {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RetryableFileStorage{storage: storage, config: config, logger: logger}
}

func (r *RetryableFileStorage) run(ctx context.Context, op, key string, fn RetryableOperation) error {
	attempts := 0
	err := WithRetry(ctx, r.config, func(ctx context.Context) error {
		attempts++
		return fn(ctx)
	})
	if err != nil && attempts > 1 {
		r.logger.WithFields(logrus.Fields{
			"operation": op,
			"key":       key,
			"attempts":  attempts,
		}).WithError(err).Warn("Storage operation failed after retries")
	}
	return err
}

// Store implements FileStorage
func (r *RetryableFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	return r.run(ctx, "store", key, func(ctx context.Context) error {
		return r.storage.Store(ctx, key, data, opts)
	})
}

// Retrieve implements FileStorage
func (r *RetryableFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	var result []byte
	err := r.run(ctx, "retrieve", key, func(ctx context.Context) error {
		data, err := r.storage.Retrieve(ctx, key)
		result = data
		return err
	})
	return result, err
}

// Delete implements FileStorage
func (r *RetryableFileStorage) Delete(ctx context.Context, key string) error {
	return r.run(ctx, "delete", key, func(ctx context.Context) error {
		return r.storage.Delete(ctx, key)
	})
}

// Exists implements FileStorage
func (r *RetryableFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	var result bool
	err := r.run(ctx, "exists", key, func(ctx context.Context) error {
		exists, err := r.storage.Exists(ctx, key)
		result = exists
		return err
	})
	return result, err
}

// GetMetadata implements FileStorage
func (r *RetryableFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	var result *FileMetadata
	err := r.run(ctx, "metadata", key, func(ctx context.Context) error {
		metadata, err := r.storage.GetMetadata(ctx, key)
		result = metadata
		return err
	})
	return result, err
}

// List implements FileStorage
func (r *RetryableFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	var result []FileMetadata
	err := r.run(ctx, "list", prefix, func(ctx context.Context) error {
		files, err := r.storage.List(ctx, prefix)
		result = files
		return err
	})
	return result, err
}

// Close implements FileStorage
func (r *RetryableFileStorage) Close() error {
	return r.storage.Close()
}
