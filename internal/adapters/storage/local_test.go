package storage

import (
	"bytes"
	"context"
	"testing"
)

func newLocalStorage(t *testing.T) *LocalFileStorage {
	t.Helper()
	storage, err := NewLocalFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestLocalFileStorage_Store(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		opts    *StoreOptions
		wantErr bool
	}{
		{name: "invoice document", key: InvoiceDocumentKey("tenant-1", "INV-000001")},
		{name: "overwrite allowed", key: InvoiceDocumentKey("tenant-1", "INV-000001"), opts: &StoreOptions{Overwrite: true}},
		{name: "overwrite refused", key: InvoiceDocumentKey("tenant-1", "INV-000001"), opts: &StoreOptions{}, wantErr: true},
		{name: "path traversal", key: "../../etc/passwd", wantErr: true},
		{name: "absolute path", key: "/etc/passwd", wantErr: true},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storage.Store(ctx, tt.key, []byte("%PDF-1.3"), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("Store() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocalFileStorage_RoundTrip(t *testing.T) {
	storage := newLocalStorage(t)
	ctx := context.Background()
	key := InvoiceDocumentKey("tenant-1", "INV-000002")
	content := []byte("%PDF-1.3 invoice")

	if err := storage.Store(ctx, key, content, nil); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := storage.Retrieve(ctx, key)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Retrieve() = %q, want %q", got, content)
	}

	exists, err := storage.Exists(ctx, key)
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil", exists, err)
	}

	meta, err := storage.GetMetadata(ctx, key)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if meta.Size != int64(len(content)) || meta.ContentType != "application/pdf" {
		t.Errorf("GetMetadata() = %+v", meta)
	}

	files, err := storage.List(ctx, "tenant-1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 1 || files[0].Key != key {
		t.Errorf("List() = %+v", files)
	}

	if err := storage.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Retrieve(ctx, key); !IsNotFound(err) {
		t.Errorf("Retrieve() after delete error = %v, want not found", err)
	}
	if err := storage.Delete(ctx, key); !IsNotFound(err) {
		t.Errorf("Delete() twice error = %v, want not found", err)
	}
}

func TestInvoiceDocumentKey(t *testing.T) {
	tests := []struct {
		tenant, number, want string
	}{
		{"tenant-1", "INV-000001", "tenant-1/INV-000001.pdf"},
		{"tenant-1", "INV/2024-000003", "tenant-1/INV_2024-000003.pdf"},
		{"../evil", "INV-1", "__evil/INV-1.pdf"},
		{"", "INV-1", "_/INV-1.pdf"},
	}

	for _, tt := range tests {
		got := InvoiceDocumentKey(tt.tenant, tt.number)
		if got != tt.want {
			t.Errorf("InvoiceDocumentKey(%q, %q) = %q, want %q", tt.tenant, tt.number, got, tt.want)
		}
		if err := validateKey(got); err != nil {
			t.Errorf("InvoiceDocumentKey(%q, %q) produced invalid key: %v", tt.tenant, tt.number, err)
		}
	}
}
