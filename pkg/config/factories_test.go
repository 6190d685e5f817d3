package config

import (
	"context"
	"strings"
	"testing"
)

func TestCreateContentStore_Inline(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{Type: "inline"}

	store, err := CreateContentStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create inline content store: %v", err)
	}
	if store != nil {
		t.Fatal("Expected nil content store for inline type")
	}
}

func TestCreateContentStore_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{
		Type: "s3",
		S3: map[string]any{
			"region": "us-east-1",
		},
	}

	_, err := CreateContentStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{Type: "nfs"}

	_, err := CreateContentStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown content store type") {
		t.Errorf("Expected 'unknown content store type' error, got: %v", err)
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{Type: "memory"}

	backend, err := CreateBackend(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory backend: %v", err)
	}
	if backend == nil {
		t.Fatal("Expected non-nil backend")
	}
}

func TestCreateBackend_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{Type: "postgres"}

	_, err := CreateBackend(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for unknown backend type")
	}
	if !strings.Contains(err.Error(), "unknown metadata store type") {
		t.Errorf("Expected 'unknown metadata store type' error, got: %v", err)
	}
}

func TestCreateBackend_BadgerMissingDBPath(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}

	_, err := CreateBackend(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateBackend_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": t.TempDir(),
		},
	}

	backend, err := CreateBackend(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create badger backend: %v", err)
	}
	if backend == nil {
		t.Fatal("Expected non-nil backend")
	}
}

func TestCreateContentStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &ContentConfig{Type: "inline"}

	_, err := CreateContentStore(ctx, cfg)
	if err != nil {
		t.Fatalf("inline content store should ignore context cancellation, got: %v", err)
	}
}

func TestCreateBackend_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &MetadataConfig{Type: "memory"}

	_, err := CreateBackend(ctx, cfg, nil)
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled error, got: %v", err)
	}
}

func TestCacheConfigFromCapacity_Defaults(t *testing.T) {
	c := cacheConfigFromCapacity(CapacityConfig{})
	if c.Lanes <= 0 {
		t.Errorf("Expected default Lanes > 0, got %d", c.Lanes)
	}
}

func TestCacheConfigFromCapacity_Overrides(t *testing.T) {
	c := cacheConfigFromCapacity(CapacityConfig{Lanes: 7})
	if c.Lanes != 7 {
		t.Errorf("Expected Lanes 7, got %d", c.Lanes)
	}
}
