package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		failures     int
		err          error
		wantAttempts int
		wantErr      bool
	}{
		{name: "success on first attempt", failures: 0, wantAttempts: 1},
		{name: "success after transient failure", failures: 1, err: NewStorageError("store", "k", ErrStorageUnavailable, true), wantAttempts: 2},
		{name: "permanent failure is not retried", failures: 5, err: NewStorageError("store", "k", ErrInvalidKey, false), wantAttempts: 1, wantErr: true},
		{name: "attempts exhausted", failures: 5, err: NewStorageError("store", "k", ErrStorageUnavailable, true), wantAttempts: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := WithRetry(ctx, fastRetryConfig(), func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("WithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("WithRetry() attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, fastRetryConfig(), func(ctx context.Context) error {
		t.Error("operation must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithRetry() error = %v, want context.Canceled", err)
	}
}

func TestCalculateDelayIsCapped(t *testing.T) {
	config := &RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, BackoffFactor: 10}
	if got := config.calculateDelay(4); got != 3*time.Second {
		t.Errorf("calculateDelay() = %v, want 3s", got)
	}
}

type flakyStorage struct {
	*MemoryFileStorage
	failuresLeft int
}

func (f *flakyStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, NewStorageError("retrieve", key, ErrStorageUnavailable, true)
	}
	return f.MemoryFileStorage.Retrieve(ctx, key)
}

func TestRetryableFileStorage(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStorage{MemoryFileStorage: NewMemoryFileStorage(), failuresLeft: 2}
	storage := NewRetryableFileStorage(inner, fastRetryConfig(), nil)

	if err := storage.Store(ctx, "tenant/doc.pdf", []byte("pdf"), nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	data, err := storage.Retrieve(ctx, "tenant/doc.pdf")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if string(data) != "pdf" {
		t.Errorf("Retrieve() = %q", data)
	}
}
