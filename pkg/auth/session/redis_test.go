package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// setupRedisStore starts a miniredis instance and connects a store to it.
func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStore_CreateGet(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !mr.Exists(DefaultKeyPrefix + sess.ID) {
		t.Errorf("key %q not written", DefaultKeyPrefix+sess.ID)
	}
	if ttl := mr.TTL(DefaultKeyPrefix + sess.ID); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", got.Email)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "alice@example.com", time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry: err = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "alice@example.com", time.Hour)
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := mr.Set(DefaultKeyPrefix+"bad", "{not json"); err != nil {
		t.Fatalf("seeding corrupt entry: %v", err)
	}

	if _, err := store.Get(ctx, "bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get corrupt: err = %v, want decode error", err)
	}
	if mr.Exists(DefaultKeyPrefix + "bad") {
		t.Error("corrupt entry was not removed")
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close()

	sess, _ := store.Create(context.Background(), "bob@example.com", time.Hour)
	if !mr.Exists("test:" + sess.ID) {
		t.Errorf("key with custom prefix not written")
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr}); err == nil {
		t.Error("NewRedisStore against closed server: expected error")
	}
}
