package session

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRoomCodesRedisRoundTrip(t *testing.T) {
	codes := newRoomCodes(testRedis(t))
	ctx := context.Background()

	code, err := codes.Allocate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(code) != roomCodeLen {
		t.Errorf("code %q length = %d, want %d", code, len(code), roomCodeLen)
	}
	for _, ch := range code {
		if !strings.ContainsRune(roomCodeAlphabet, ch) {
			t.Errorf("code %q contains %q outside the alphabet", code, ch)
		}
	}

	id, ok := codes.Resolve(ctx, strings.ToLower("  "+code+" "))
	if !ok || id != "sess-1" {
		t.Errorf("resolve = %q/%v, want sess-1", id, ok)
	}

	codes.Release(ctx, code)
	if _, ok := codes.Resolve(ctx, code); ok {
		t.Error("released code still resolves")
	}
}

func TestRoomCodesLocalFallback(t *testing.T) {
	codes := newRoomCodes(nil)
	ctx := context.Background()

	code, err := codes.Allocate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if id, ok := codes.Resolve(ctx, code); !ok || id != "sess-1" {
		t.Errorf("resolve = %q/%v, want sess-1", id, ok)
	}
	codes.Release(ctx, code)
	if _, ok := codes.Resolve(ctx, code); ok {
		t.Error("released code still resolves")
	}
}

func TestRoomCodesResolveEmpty(t *testing.T) {
	codes := newRoomCodes(nil)
	if _, ok := codes.Resolve(context.Background(), "   "); ok {
		t.Error("blank code resolved")
	}
}

func TestRoomCodesAdopt(t *testing.T) {
	codes := newRoomCodes(nil)
	codes.adopt("ABC234", "sess-9")
	if id, ok := codes.Resolve(context.Background(), "abc234"); !ok || id != "sess-9" {
		t.Errorf("resolve = %q/%v, want sess-9", id, ok)
	}
}
