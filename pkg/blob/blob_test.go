package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
	if err := ValidateKey(h1); err != nil {
		t.Errorf("ValidateKey(Hash) = %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "abc", "../../etc/passwd", string(bytes.Repeat([]byte("z"), 64))} {
		if err := ValidateKey(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	data := []byte("\x89PNG fake screen")

	key, err := s.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != Hash(data) {
		t.Errorf("key = %s, want content hash", key)
	}

	again, err := s.Put(ctx, data)
	if err != nil || again != key {
		t.Errorf("second Put = %s, %v; want same key", again, err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete of missing blob = %v", err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get(invalid) = %v, want ErrInvalidKey", err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestFileStoreSharding(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(context.Background(), []byte("shard me"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, key[:2], key[2:])); err != nil {
		t.Errorf("blob not at sharded path: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, key[:2]))
	if len(entries) != 1 {
		t.Errorf("shard holds %d entries, want 1 (temp files must be cleaned up)", len(entries))
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SPECSYNC_TEST_REDIS")
	if addr == "" {
		t.Skip("SPECSYNC_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	s := NewRedisStore(client, WithPrefix("specsync:test:blob:"))
	defer s.Close()
	testStore(t, s)
}
