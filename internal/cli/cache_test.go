package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/config"
	"github.com/matzehuels/watershed/pkg/dataset"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	if dir == "" {
		t.Error("cacheDir() returned empty string")
	}

	// Should be under home directory
	home, _ := os.UserHomeDir()
	if !strings.HasPrefix(dir, home) {
		t.Errorf("cacheDir() = %q, should be under home %q", dir, home)
	}

	// Should end with "watershed"
	if !strings.HasSuffix(dir, "watershed") {
		t.Errorf("cacheDir() = %q, should end with 'watershed'", dir)
	}

	// Should contain ".cache" in path
	if !strings.Contains(dir, ".cache") {
		t.Errorf("cacheDir() = %q, should contain '.cache'", dir)
	}
}

func TestCacheDirStructure(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	// Verify the expected structure: $HOME/.cache/watershed
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "watershed")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", "watershed"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestFileCacheDirConfigured(t *testing.T) {
	dir, err := fileCacheDir(config.CacheConfig{Dir: "/srv/cache"})
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/srv/cache" {
		t.Errorf("fileCacheDir() = %q, want /srv/cache", dir)
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()

	c, err := newCache(ctx, config.CacheConfig{Backend: config.BackendFile, Dir: t.TempDir()}, false)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("file backend = %T, want *cache.FileCache", c)
	}

	c, err = newCache(ctx, config.CacheConfig{Backend: config.BackendFile, Dir: t.TempDir()}, true)
	if err != nil {
		t.Fatalf("no-cache: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("--no-cache = %T, want *cache.NullCache", c)
	}

	c, err = newCache(ctx, config.CacheConfig{Backend: config.BackendNone}, false)
	if err != nil {
		t.Fatalf("none backend: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T, want *cache.NullCache", c)
	}
}

func TestDataScope(t *testing.T) {
	a := dataScope(config.DataConfig{Dir: "/data/merit-v1"})
	b := dataScope(config.DataConfig{Dir: "/data/merit-v2"})
	s3 := dataScope(config.DataConfig{S3: dataset.S3Config{Endpoint: "minio:9000", Bucket: "merit"}})

	if a == b || a == s3 {
		t.Errorf("scopes should differ: %q %q %q", a, b, s3)
	}
	if a != dataScope(config.DataConfig{Dir: "/data/merit-v1"}) {
		t.Error("scope should be stable")
	}
	if !strings.HasSuffix(a, ":") || len(a) != 13 {
		t.Errorf("scope = %q, want 12 hex chars and a colon", a)
	}
}
