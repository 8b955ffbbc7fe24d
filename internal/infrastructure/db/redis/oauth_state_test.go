package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/poklin/poklin/internal/core/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) (*OAuthStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOAuthStateStore(client, ttl), mr
}

func TestOAuthStateStore_SaveAndConsume(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "abc", "verifier-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("oauth:state:abc"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	got, err := store.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != "verifier-1" {
		t.Fatalf("expected verifier-1, got %q", got)
	}

	// Single use.
	if _, err := store.Consume(ctx, "abc"); !errors.Is(err, domain.ErrOAuthState) {
		t.Fatalf("expected ErrOAuthState on reuse, got %v", err)
	}
}

func TestOAuthStateStore_Expired(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "abc", "v"); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Consume(ctx, "abc"); !errors.Is(err, domain.ErrOAuthState) {
		t.Fatalf("expected ErrOAuthState after expiry, got %v", err)
	}
}

func TestOAuthStateStore_RejectsCollision(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, "abc", "first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "abc", "second"); !errors.Is(err, domain.ErrOAuthState) {
		t.Fatalf("expected ErrOAuthState on collision, got %v", err)
	}
	got, err := store.Consume(ctx, "abc")
	if err != nil || got != "first" {
		t.Fatalf("expected first verifier to survive, got %q, %v", got, err)
	}
}

func TestOAuthStateStore_UnknownAndEmpty(t *testing.T) {
	store, _ := newTestStore(t, 0)
	for _, state := range []string{"", "missing"} {
		if _, err := store.Consume(context.Background(), state); !errors.Is(err, domain.ErrOAuthState) {
			t.Fatalf("state %q: expected ErrOAuthState, got %v", state, err)
		}
	}
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if err := Ping(client)(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
