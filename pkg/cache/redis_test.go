package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// Set WATERSHED_TEST_REDIS_ADDR to run against a live server.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("WATERSHED_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WATERSHED_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "watershed-test:" + time.Now().Format(time.RFC3339Nano)
	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("Get(new key) = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(got) != "v" {
		t.Fatalf("Get = %q, %v, %v", got, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := NewRedisCache(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsRetryable(err) {
		t.Errorf("connection error should be retryable: %v", err)
	}
}
